package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	dbfs "github.com/garnizeh/careerhub/db"
	"github.com/garnizeh/careerhub/internal/config"
	"github.com/garnizeh/careerhub/internal/db"
	"github.com/garnizeh/careerhub/internal/repository/sqlite"
)

func main() {
	file := flag.String("file", "", "Demo seed YAML (default: embedded db/seed/demo.yaml)")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var raw []byte
	if *file != "" {
		raw, err = os.ReadFile(*file)
	} else {
		raw, err = fs.ReadFile(dbfs.SeedFiles, "seed/demo.yaml")
	}
	if err != nil {
		log.Fatalf("Read seed: %v", err)
	}
	demo, err := parseDemo(raw)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	d, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		log.Fatalf("Open DB: %v", err)
	}
	defer d.Close()
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		log.Fatalf("Migrate: %v", err)
	}

	repo := sqlite.New(d, logger)
	s := &seeder{users: repo, profile: repo, companies: repo, jobs: repo, cost: cfg.BcryptCost, logger: logger}
	sum, err := s.run(ctx, demo)
	if err != nil {
		log.Fatalf("Seed: %v", err)
	}
	fmt.Printf("Seed complete: %d users, %d profiles, company created: %t, %d jobs\n", sum.Users, sum.Profiles, sum.Company, sum.Jobs)
}
