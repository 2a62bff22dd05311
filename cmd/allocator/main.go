// Package main is the entrypoint for the coretime allocator (binary name "allocator").
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/coretime-allocator/internal/config"
	"github.com/morezero/coretime-allocator/internal/server"
	"github.com/morezero/coretime-allocator/pkg/codec"
	"github.com/morezero/coretime-allocator/pkg/db"
	"github.com/morezero/coretime-allocator/pkg/schema"
)

const usage = `Usage: allocator [command]
       allocator serve                 Start the allocator (NATS, HTTP, request API).
       allocator migrate up            Run database migrations.
       allocator migrate down          Refuses: migrations are forward-only.
       allocator migrate status        Show migration status.
       allocator ensure-db [name]      Create database if missing (default name: coretime_test). Uses DATABASE_URL host/user.
       allocator clear                 Empty the notification slots and the credit ledger; schema is preserved.
       allocator schema check [file]   Compare the broker schema artifact with the local call table.
       allocator ledger <account>      Show the balance and recent deposits of an account (hex).

Commands:
  serve           (default) Start the coretime allocator.
  migrate up      Run database migrations only.
  migrate down    Fails; restore a backup to roll back.
  migrate status  Show current migration status.
  ensure-db       Create database (e.g. coretime_test) on same host as DATABASE_URL.
  clear           Reset allocator state; schema preserved.
  schema check    Exit non-zero when the pallet or call indexes drifted.
  ledger          Read the Postgres credit ledger.

Environment: DATABASE_URL, MIGRATION_PATH, SLOT_STORE, LEDGER, REDIS_URL, ALLOCATOR_SCHEMA_FILE,
ALLOCATOR_ENABLE_TEST_HOOKS, ALLOCATOR_HTTP_ADDR (default :8080). See README.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("allocator migrate: require subcommand (up, down, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := withPool(runMigrateUp); err != nil {
				log.Fatalf("allocator migrate up: %v", err)
			}
		case "status":
			if err := withPool(runMigrateStatus); err != nil {
				log.Fatalf("allocator migrate status: %v", err)
			}
		case "down":
			if err := withPool(runMigrateDown); err != nil {
				log.Fatalf("allocator migrate down: %v", err)
			}
		default:
			log.Fatalf("allocator migrate: unknown subcommand %q (use up, down, status)", sub)
		}
		return
	case "clear":
		if err := withPool(runClear); err != nil {
			log.Fatalf("allocator clear: %v", err)
		}
		return
	case "ensure-db":
		dbName := "coretime_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("allocator ensure-db: %v", err)
		}
		return
	case "schema":
		if len(args) < 2 || args[1] != "check" {
			log.Fatalf("allocator schema: require subcommand (check)")
		}
		file := ""
		if len(args) > 2 {
			file = args[2]
		}
		if err := runSchemaCheck(file); err != nil {
			log.Fatalf("allocator schema check: %v", err)
		}
		return
	case "ledger":
		if len(args) < 2 {
			log.Fatalf("allocator ledger: require an account")
		}
		who, err := codec.ParseAccountID(args[1])
		if err != nil {
			log.Fatalf("allocator ledger: %v", err)
		}
		if err := withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
			return runLedger(ctx, pool, who)
		}); err != nil {
			log.Fatalf("allocator ledger: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
		break
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("allocator: %v", err)
	}
}

// withPool loads config, opens a pool on DATABASE_URL and runs fn.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	server.SetupLogging(cfg.LogLevel)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

func runMigrateUp(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
	migrations, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	ran, err := db.RunMigrations(ctx, pool, migrations)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	fmt.Printf("Applied %d of %d migrations from %s.\n", ran, len(migrations), cfg.MigrationPath)
	return nil
}

func runMigrateStatus(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
	st, err := db.MigrationStatus(ctx, pool, cfg.MigrationPath)
	if err != nil {
		return err
	}
	fmt.Printf("Migration status: %s\n", st)
	if !st.Ready() {
		return fmt.Errorf("schema not ready, run 'allocator migrate up'")
	}
	return nil
}

func runMigrateDown(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
	return db.MigrationDown(ctx, pool, cfg.MigrationPath)
}

func runClear(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
	if err := db.ClearAllocatorState(ctx, pool); err != nil {
		return fmt.Errorf("clear allocator state: %w", err)
	}
	return nil
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	targetURL, err := db.WithDatabase(cfg.DatabaseURL, dbName)
	if err != nil {
		return err
	}
	if err := db.EnsureDatabase(context.Background(), targetURL); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready.\n", dbName)
	return nil
}

func runSchemaCheck(file string) error {
	s, err := schema.LoadSchema(file)
	if err != nil {
		return err
	}
	if err := schema.Check(s); err != nil {
		return err
	}
	fmt.Printf("Broker schema %s@%s matches pallet %d.\n", s.Name, s.Version, s.PalletIndex)
	return nil
}

func runLedger(ctx context.Context, pool *pgxpool.Pool, who codec.AccountID) error {
	repo := db.NewRepository(pool)
	balance, err := repo.Balance(ctx, who)
	if err != nil {
		return err
	}
	deposits, err := repo.ListDeposits(ctx, who, 20)
	if err != nil {
		return err
	}
	fmt.Printf("Account %s balance %s\n", who, balance)
	for _, d := range deposits {
		fmt.Printf("  #%d %s +%s\n", d.ID, d.Created.Format("2006-01-02T15:04:05Z07:00"), d.Amount)
	}
	return nil
}
