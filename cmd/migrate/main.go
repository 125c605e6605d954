package main

import (
	"context"
	"log"
	"os"
	"time"

	"assetdesk/internal/config"
	"assetdesk/internal/container"
	"assetdesk/internal/migration"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Usage: migrate [database_url]
	if len(os.Args) > 1 {
		appConfig.Database.URL = os.Args[1]
	}

	log.Printf("Running migrations on %s database", appConfig.Database.Driver)

	db, err := container.OpenDatabase(appConfig.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Printf("Migration complete: schema version %s", runner.Version())
}
