package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/coretime-allocator/internal/config"
	"github.com/morezero/coretime-allocator/pkg/allocator"
	"github.com/morezero/coretime-allocator/pkg/credit"
	"github.com/morezero/coretime-allocator/pkg/db"
	"github.com/morezero/coretime-allocator/pkg/inbox"
	"github.com/morezero/coretime-allocator/pkg/inbox/redisstore"
)

// storage holds the slot store and ledger picked by SLOT_STORE and LEDGER.
type storage struct {
	slots  inbox.SlotStore
	ledger credit.Depositor
	pool   *pgxpool.Pool
	repo   *db.Repository
	redis  *redisstore.Store
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	st := &storage{}

	if cfg.UsesDatabase() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		st.pool = pool

		if cfg.RunMigrations {
			migrations, err := db.LoadMigrationFiles(cfg.MigrationPath)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
			}
			if _, err := db.RunMigrations(ctx, pool, migrations); err != nil {
				pool.Close()
				return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
			}
		}
		st.repo = db.NewRepository(pool).WithMinimumBalance(cfg.MinimumBalance)
	}

	switch cfg.SlotStore {
	case config.BackendPostgres:
		st.slots = st.repo
	case config.BackendRedis:
		rs, err := redisstore.Connect(ctx, cfg.RedisURL, cfg.RedisKeyPrefix)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("%s - failed to connect to redis: %w", logPrefix, err)
		}
		st.redis = rs
		st.slots = rs
	default:
		st.slots = inbox.NewMemorySlots()
	}

	if cfg.Ledger == config.BackendPostgres {
		st.ledger = st.repo
	} else {
		st.ledger = credit.NewMemoryLedger(cfg.MinimumBalance)
	}

	slog.Info(fmt.Sprintf("%s - Storage ready (slots=%s ledger=%s)", logPrefix, cfg.SlotStore, cfg.Ledger))
	return st, nil
}

// checks returns a health check per external store.
func (st *storage) checks() map[string]allocator.HealthCheck {
	checks := make(map[string]allocator.HealthCheck)
	if st.repo != nil {
		checks["database"] = st.repo.Ping
	}
	if st.redis != nil {
		checks["redis"] = st.redis.Ping
	}
	return checks
}

// Close releases every open connection.
func (st *storage) Close() {
	if st.redis != nil {
		if err := st.redis.Close(); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to close redis: %v", logPrefix, err))
		}
	}
	if st.pool != nil {
		st.pool.Close()
	}
}
