package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationsLogPrefix = "db:migrations"

// ErrForwardOnly is returned by MigrationDown. Roll back from a backup instead.
var ErrForwardOnly = errors.New("db: migrations are forward-only")

// RequiredTables must exist before the allocator can use Postgres for slots or credit.
var RequiredTables = []string{"notification_slots", "credit_balances", "credit_deposits"}

const createVersionTable = `CREATE TABLE IF NOT EXISTS allocator_schema_versions (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migration is one forward-only SQL file. Version is the file name without ".sql".
type Migration struct {
	Version string
	SQL     string
}

// LoadMigrationFiles reads the .sql files in dir ordered by name.
func LoadMigrationFiles(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read migration dir %s: %w", migrationsLogPrefix, dir, err)
	}

	var out []Migration
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s - failed to read %s: %w", migrationsLogPrefix, name, err)
		}
		out = append(out, Migration{Version: strings.TrimSuffix(name, ".sql"), SQL: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// RunMigrations applies the migrations not yet recorded in allocator_schema_versions,
// each in its own transaction, and returns how many ran.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) (int, error) {
	if _, err := pool.Exec(ctx, createVersionTable); err != nil {
		return 0, fmt.Errorf("%s - failed to create version table: %w", migrationsLogPrefix, err)
	}
	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, m := range pendingMigrations(migrations, applied) {
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO allocator_schema_versions (version) VALUES ($1)`, m.Version)
			return err
		})
		if err != nil {
			return ran, fmt.Errorf("%s - migration %s failed: %w", migrationsLogPrefix, m.Version, err)
		}
		slog.Info(fmt.Sprintf("%s - Applied migration %s", migrationsLogPrefix, m.Version))
		ran++
	}
	if ran == 0 {
		slog.Info(fmt.Sprintf("%s - Schema up to date (%d migrations)", migrationsLogPrefix, len(migrations)))
	}
	return ran, nil
}

func appliedVersions(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM allocator_schema_versions`)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read versions: %w", migrationsLogPrefix, err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read versions: %w", migrationsLogPrefix, err)
	}
	out := make(map[string]bool, len(versions))
	for _, v := range versions {
		out[v] = true
	}
	return out, nil
}

func pendingMigrations(all []Migration, applied map[string]bool) []Migration {
	var out []Migration
	for _, m := range all {
		if !applied[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// Status describes the schema of the connected database against a migration directory.
type Status struct {
	Applied       []string
	Pending       []string
	MissingTables []string
}

// Ready reports whether nothing is pending and every required table exists.
func (s Status) Ready() bool {
	return len(s.Pending) == 0 && len(s.MissingTables) == 0
}

func (s Status) String() string {
	if s.Ready() {
		return fmt.Sprintf("up to date (%d applied)", len(s.Applied))
	}
	var parts []string
	if len(s.Pending) > 0 {
		parts = append(parts, "pending: "+strings.Join(s.Pending, ", "))
	}
	if len(s.MissingTables) > 0 {
		parts = append(parts, "missing tables: "+strings.Join(s.MissingTables, ", "))
	}
	return strings.Join(parts, "; ")
}

// MigrationStatus compares the database with the migrations in dir.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, dir string) (Status, error) {
	var st Status
	migrations, err := LoadMigrationFiles(dir)
	if err != nil {
		return st, err
	}

	applied := map[string]bool{}
	var tracked bool
	if err := pool.QueryRow(ctx, `SELECT to_regclass('allocator_schema_versions') IS NOT NULL`).Scan(&tracked); err != nil {
		return st, fmt.Errorf("%s - failed to check version table: %w", migrationsLogPrefix, err)
	}
	if tracked {
		if applied, err = appliedVersions(ctx, pool); err != nil {
			return st, err
		}
	}
	for _, m := range migrations {
		if applied[m.Version] {
			st.Applied = append(st.Applied, m.Version)
		} else {
			st.Pending = append(st.Pending, m.Version)
		}
	}

	for _, table := range RequiredTables {
		var exists bool
		if err := pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists); err != nil {
			return st, fmt.Errorf("%s - failed to check table %s: %w", migrationsLogPrefix, table, err)
		}
		if !exists {
			st.MissingTables = append(st.MissingTables, table)
		}
	}
	return st, nil
}

// MigrationDown always fails with ErrForwardOnly.
func MigrationDown(_ context.Context, _ *pgxpool.Pool, _ string) error {
	return ErrForwardOnly
}
