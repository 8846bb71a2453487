package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	dbfs "github.com/garnizeh/careerhub/db"
	"github.com/garnizeh/careerhub/internal/config"
	"github.com/garnizeh/careerhub/internal/db"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	database, err := db.New(ctx, cfg.DatabasePath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	// migrations plus the achievement, badge and challenge catalogue
	if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		fmt.Fprintf(os.Stderr, "Migration runner error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Database initialized successfully.")
}
