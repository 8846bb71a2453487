package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	dbfs "github.com/garnizeh/careerhub/db"
	"github.com/garnizeh/careerhub/internal/db"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, "file:migrateidem?mode=memory&cache=shared", nil)
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("scan schema_migrations count: %v", err)
	}
	if count < 1 {
		t.Fatalf("expected at least 1 migration recorded, got %d", count)
	}

	for _, table := range []string{"users", "jobs", "job_applications", "notifications", "voice_sessions", "background_jobs", "resume_sections", "resume_suggestions", "job_recommendations", "practice_interviews", "interview_answers"} {
		var name string
		if err := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name); err != nil {
			t.Fatalf("expected %s table exists: %v", table, err)
		}
	}
}

func TestMigrate_SeedsXPCatalogue(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, filepath.Join(t.TempDir(), "seed.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	// second run must not duplicate rows
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	tests := []struct {
		query string
		want  int
	}{
		{`SELECT COUNT(1) FROM achievement_definitions`, 19},
		{`SELECT COUNT(1) FROM badge_definitions`, 13},
		{`SELECT COUNT(1) FROM daily_challenges`, 3},
		{`SELECT max_repeats FROM achievement_definitions WHERE key = 'RESUME_ARCHIVIST'`, 10},
		{`SELECT xp_reward FROM achievement_definitions WHERE key = 'PROJECT_BUILDER'`, 100},
	}
	for _, tt := range tests {
		var got int
		if err := d.QueryRow(ctx, tt.query).Scan(&got); err != nil {
			t.Fatalf("%s: %v", tt.query, err)
		}
		if got != tt.want {
			t.Fatalf("%s: got %d want %d", tt.query, got, tt.want)
		}
	}
}

func TestMigrate_CustomFS(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, "file:migratecustom?mode=memory&cache=shared", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	migrations := fstest.MapFS{
		"migrations/0002_b.sql": {Data: []byte(`INSERT INTO a (v) VALUES ('second');`)},
		"migrations/0001_a.sql": {Data: []byte(`CREATE TABLE a (v TEXT);`)},
		"migrations/README.md":  {Data: []byte(`ignored`)},
	}
	if err := db.Migrate(ctx, d, migrations, fstest.MapFS{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	var v string
	if err := d.QueryRow(ctx, `SELECT v FROM a`).Scan(&v); err != nil {
		t.Fatalf("select: %v", err)
	}
	if v != "second" {
		t.Fatalf("expected migrations in lexical order, got %q", v)
	}
}

func TestMigrate_BrokenMigration(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, "file:migratebroken?mode=memory&cache=shared", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	migrations := fstest.MapFS{
		"migrations/0001_bad.sql": {Data: []byte(`CREATE TABLE (`)},
	}
	if err := db.Migrate(ctx, d, migrations, nil); err == nil {
		t.Fatalf("expected error for broken migration")
	}
}
