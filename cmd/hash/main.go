// Package main prints the bcrypt hash of a password so an administrator
// account can be inserted or repaired by hand. The password is read from the
// first argument, or from stdin when no argument is given.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/admitai/admitai-korea/internal/auth"
)

func main() {
	password := ""
	if len(os.Args) > 1 {
		password = os.Args[1]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("usage: %s <password>  (or pipe the password on stdin)", os.Args[0])
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if len(password) < auth.MinPasswordLength {
		log.Fatalf("password must be at least %d characters", auth.MinPasswordLength)
	}

	cost := 0
	if v := os.Getenv("ADM_AUTH_BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid ADM_AUTH_BCRYPT_COST: %v", err)
		}
		cost = n
	}

	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hash)
}
