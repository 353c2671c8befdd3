package main

import (
	"context"
	"log"
	"os"

	"github.com/safar/go-bookstore/internal/config"
	"github.com/safar/go-bookstore/internal/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}
	direction := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	ran, err := database.RunMigrations(context.Background(), db, cfg.Database.MigrationsDir, direction)
	if err != nil {
		log.Fatalf("Run migrations: %v", err)
	}

	for _, name := range ran {
		log.Printf("Ran migration: %s", name)
	}
	log.Printf("Successfully ran %d migration(s) %s", len(ran), direction)
}
