package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/garnizeh/careerhub/internal/config"
	"github.com/garnizeh/careerhub/internal/storage"
)

func open(ctx context.Context, cfg *config.Config, file, key string) (io.ReadCloser, error) {
	if file != "" {
		return os.Open(file)
	}
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, key)
}

func main() {
	file := flag.String("from", "", "Local backup file to restore")
	key := flag.String("key", "", "Object store key of the backup, e.g. backups/careerhub.db.20260101T000000Z.bak")
	flag.Parse()
	if (*file == "") == (*key == "") {
		fmt.Fprintln(os.Stderr, "usage: db_restore -from <backup file> | -key <object key>")
		os.Exit(2)
	}

	_ = godotenv.Load()
	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	dst := cfg.DatabasePath

	src, err := open(ctx, cfg, *file, *key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	defer dstFile.Close()

	if _, err = io.Copy(dstFile, src); err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	// stale WAL files would be replayed over the restored copy
	os.Remove(dst + "-wal")
	os.Remove(dst + "-shm")

	fmt.Printf("Database restored to %s.\n", dst)
}
