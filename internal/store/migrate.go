package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// migrationLockKey serializes migrations across API instances starting at once.
const migrationLockKey = 7_410_221

var migrationName = regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)

// Migration is one versioned SQL file.
type Migration struct {
	Version   string
	Name      string
	Direction string
	Path      string
}

// ListMigrations returns the migrations in dir for one direction ("up" or
// "down"). Up migrations are ordered oldest first, down migrations newest first.
func ListMigrations(dir, direction string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := migrationName.FindStringSubmatch(entry.Name())
		if match == nil || match[2] != direction {
			continue
		}
		out = append(out, Migration{
			Version:   match[1],
			Name:      entry.Name(),
			Direction: direction,
			Path:      filepath.Join(dir, entry.Name()),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if direction == "down" {
			return out[i].Version > out[j].Version
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

// ApplyMigrations runs every pending up migration in its own transaction and
// returns the file names it applied.
func ApplyMigrations(ctx context.Context, db *sql.DB, migrationsDir string) ([]string, error) {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return nil, err
	}

	migrations, err := ListMigrations(migrationsDir, "up")
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0)
	for _, m := range migrations {
		done, err := applyOne(ctx, db, m)
		if err != nil {
			return applied, err
		}
		if done {
			applied = append(applied, m.Name)
		}
	}
	return applied, nil
}

func applyOne(ctx context.Context, db *sql.DB, m Migration) (bool, error) {
	contents, err := os.ReadFile(m.Path)
	if err != nil {
		return false, fmt.Errorf("read migration %s: %w", m.Name, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin migration tx %s: %w", m.Name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockKey); err != nil {
		return false, fmt.Errorf("lock migrations: %w", err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, m.Name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check migration %s: %w", m.Name, err)
	}
	if exists {
		return false, nil
	}

	if strings.TrimSpace(string(contents)) != "" {
		if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
			return false, fmt.Errorf("execute migration %s: %w", m.Name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES($1)`, m.Name); err != nil {
		return false, fmt.Errorf("record migration %s: %w", m.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit migration %s: %w", m.Name, err)
	}
	return true, nil
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	return nil
}
