package db

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

const ensureLogPrefix = "db:ensure"

// maintenanceDatabase is connected to while creating the target database.
const maintenanceDatabase = "postgres"

var databaseNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// DatabaseName extracts and validates the database name of a postgres URL.
func DatabaseName(databaseURL string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("%s - invalid database URL: %w", ensureLogPrefix, err)
	}
	name := strings.TrimSpace(strings.TrimPrefix(u.Path, "/"))
	if name == "" {
		return "", fmt.Errorf("%s - database name empty in URL", ensureLogPrefix)
	}
	if !databaseNamePattern.MatchString(name) {
		return "", fmt.Errorf("%s - database name %q is not a plain identifier", ensureLogPrefix, name)
	}
	return name, nil
}

// WithDatabase returns databaseURL pointed at another database. Credentials and query
// parameters are kept.
func WithDatabase(databaseURL, name string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("%s - invalid database URL: %w", ensureLogPrefix, err)
	}
	u.Path = "/" + name
	return u.String(), nil
}

// EnsureDatabase creates the database named in databaseURL when it is missing. Call it
// before NewPool; it opens a single connection to the maintenance database.
func EnsureDatabase(ctx context.Context, databaseURL string) error {
	name, err := DatabaseName(databaseURL)
	if err != nil {
		return err
	}
	adminURL, err := WithDatabase(databaseURL, maintenanceDatabase)
	if err != nil {
		return err
	}

	connConfig, err := pgx.ParseConfig(adminURL)
	if err != nil {
		return fmt.Errorf("%s - failed to parse maintenance URL: %w", ensureLogPrefix, err)
	}
	connConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to %s: %w", ensureLogPrefix, maintenanceDatabase, err)
	}
	defer conn.Close(ctx)

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists); err != nil {
		return fmt.Errorf("%s - failed to look up %q: %w", ensureLogPrefix, name, err)
	}
	if exists {
		slog.Debug(fmt.Sprintf("%s - Database %q exists", ensureLogPrefix, name))
		return nil
	}

	slog.Info(fmt.Sprintf("%s - Creating database %q", ensureLogPrefix, name))
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("%s - failed to create %q: %w", ensureLogPrefix, name, err)
	}
	return nil
}
