//go:build ignore

// generate-key prints fresh values for ENCRYPTION_KEY and
// ADM_AUTH_JWT_SECRET. Run it with:
//
//	go run scripts/generate-key.go
package main

import (
	"encoding/hex"
	"fmt"
	"log"

	"github.com/admitai/admitai-korea/internal/crypto"
)

func main() {
	encKey, err := crypto.GenerateKey()
	if err != nil {
		log.Fatal(err)
	}
	jwtSecret, err := crypto.GenerateKey()
	if err != nil {
		log.Fatal(err)
	}

	// FromEncryptionKey uses 64 hex characters as the raw AES-256 key.
	if _, err := crypto.FromEncryptionKey(hex.EncodeToString(encKey)); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("ENCRYPTION_KEY=%s\n", hex.EncodeToString(encKey))
	fmt.Printf("ADM_AUTH_JWT_SECRET=%s\n", hex.EncodeToString(jwtSecret))
}
