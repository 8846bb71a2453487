package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/garnizeh/careerhub/internal/config"
	"github.com/garnizeh/careerhub/internal/db"
	"github.com/garnizeh/careerhub/internal/storage"
)

func main() {
	upload := flag.Bool("upload", false, "Also copy the backup to the configured object store")
	flag.Parse()

	_ = godotenv.Load()
	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	database, err := db.New(ctx, cfg.DatabasePath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	dst := fmt.Sprintf("%s.%s.bak", cfg.DatabasePath, time.Now().UTC().Format("20060102T150405Z"))
	if err := database.Backup(ctx, dst); err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Database backup written to %s\n", dst)

	if !*upload {
		return
	}
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Storage error: %v\n", err)
		os.Exit(1)
	}
	f, err := os.Open(dst)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload error: %v\n", err)
		os.Exit(1)
	}
	key := "backups/" + filepath.Base(dst)
	if err := store.Put(ctx, key, f, st.Size(), "application/vnd.sqlite3"); err != nil {
		fmt.Fprintf(os.Stderr, "Upload error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Backup uploaded as %s\n", key)
}
