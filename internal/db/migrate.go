package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// XPSeed is the layout of db/seed/xp.yaml.
type XPSeed struct {
	Achievements []struct {
		Key            string `yaml:"key"`
		Title          string `yaml:"title"`
		Description    string `yaml:"description"`
		Category       string `yaml:"category"`
		Icon           string `yaml:"icon"`
		XPReward       int    `yaml:"xp_reward"`
		Repeatable     bool   `yaml:"repeatable"`
		MaxRepeats     int    `yaml:"max_repeats"`
		ConditionType  string `yaml:"condition_type"`
		ConditionValue int    `yaml:"condition_value"`
	} `yaml:"achievements"`
	Badges []struct {
		Level       int    `yaml:"level"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Color       string `yaml:"color"`
		Icon        string `yaml:"icon"`
	} `yaml:"badges"`
	DailyChallenges []struct {
		Key            string `yaml:"key"`
		Title          string `yaml:"title"`
		Description    string `yaml:"description"`
		AchievementKey string `yaml:"achievement_key"`
		XPReward       int    `yaml:"xp_reward"`
	} `yaml:"daily_challenges"`
}

// Migrate applies migrations and optional seed files found in the repository.
// It creates a `schema_migrations` table to track applied migrations and applies
// any SQL files under `migrations/` that have not yet been recorded. The XP
// catalogue in `seed/xp.yaml` is upserted on every run.
func Migrate(ctx context.Context, d *DB, migrationFS fs.FS, seedFS fs.FS) error {
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	migDir := "migrations"

	entries, err := fs.ReadDir(migrationFS, migDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	for _, fname := range files {
		version := strings.TrimSuffix(fname, path.Ext(fname))

		var count int
		if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version).Scan(&count); err != nil {
			return fmt.Errorf("scan migration applied count: %w", err)
		}
		if count > 0 {
			continue
		}

		b, err := fs.ReadFile(migrationFS, path.Join(migDir, fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}
		if _, err := d.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec migration %s: %w", fname, err)
		}

		if _, err := d.Exec(ctx, `INSERT INTO schema_migrations (version, applied) VALUES (?, strftime('%s','now'))`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", fname, err)
		}
		d.logger.Info("migration applied", "version", version)
	}

	if seedFS == nil {
		return nil
	}
	b, err := fs.ReadFile(seedFS, path.Join("seed", "xp.yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read xp seed: %w", err)
	}
	var seed XPSeed
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return fmt.Errorf("decode xp seed: %w", err)
	}
	return applyXPSeed(ctx, d, &seed)
}

func applyXPSeed(ctx context.Context, d *DB, seed *XPSeed) error {
	tx, err := d.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, a := range seed.Achievements {
		_, err := tx.ExecContext(ctx, `INSERT INTO achievement_definitions (key, title, description, category, icon, xp_reward, repeatable, max_repeats, condition_type, condition_value, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
			ON CONFLICT(key) DO UPDATE SET title = excluded.title, description = excluded.description, category = excluded.category, icon = excluded.icon,
				xp_reward = excluded.xp_reward, repeatable = excluded.repeatable, max_repeats = excluded.max_repeats,
				condition_type = excluded.condition_type, condition_value = excluded.condition_value`,
			a.Key, a.Title, a.Description, a.Category, a.Icon, a.XPReward, a.Repeatable, a.MaxRepeats, a.ConditionType, a.ConditionValue)
		if err != nil {
			return fmt.Errorf("seed achievement %s: %w", a.Key, err)
		}
	}
	for _, b := range seed.Badges {
		_, err := tx.ExecContext(ctx, `INSERT INTO badge_definitions (level, name, description, color, icon) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(level) DO UPDATE SET name = excluded.name, description = excluded.description, color = excluded.color, icon = excluded.icon`,
			b.Level, b.Name, b.Description, b.Color, b.Icon)
		if err != nil {
			return fmt.Errorf("seed badge level %d: %w", b.Level, err)
		}
	}
	for _, c := range seed.DailyChallenges {
		_, err := tx.ExecContext(ctx, `INSERT INTO daily_challenges (key, title, description, achievement_key, xp_reward, is_active) VALUES (?, ?, ?, ?, ?, 1)
			ON CONFLICT(key) DO UPDATE SET title = excluded.title, description = excluded.description, achievement_key = excluded.achievement_key, xp_reward = excluded.xp_reward`,
			c.Key, c.Title, c.Description, c.AchievementKey, c.XPReward)
		if err != nil {
			return fmt.Errorf("seed daily challenge %s: %w", c.Key, err)
		}
	}
	return tx.Commit()
}
