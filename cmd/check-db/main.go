// Package main is a diagnostic tool for database connectivity. It connects
// with the server's configuration, prints the migration version and a row
// count for every domain table, and exits non-zero on any failure so it can
// gate deployment pipelines.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/db"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, cfg.Database.GetDSN(), 2, 1)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer database.Close()

	fmt.Printf("Connected to %s@%s:%d/%s\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	version, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		log.Fatalf("Failed to read migration version: %v", err)
	}
	fmt.Printf("Schema version: %d (dirty: %v)\n", version, dirty)

	counts, err := db.CountRows(ctx, database)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	fmt.Println("\n=== ROWS ===")
	for _, table := range db.Tables {
		fmt.Printf("%-24s %d\n", table, counts[table])
	}

	if dirty {
		fmt.Println("\nSchema is dirty; run fix-migration before restarting the server.")
		os.Exit(2)
	}
}
