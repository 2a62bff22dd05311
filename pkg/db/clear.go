package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearAllocatorState empties both inbox slots and truncates the credit ledger.
// Schema and slot rows are preserved.
func ClearAllocatorState(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing allocator state", clearLogPrefix))

	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE notification_slots SET payload = NULL, modified = now()`); err != nil {
			return fmt.Errorf("reset slots: %w", err)
		}
		if _, err := tx.Exec(ctx, `TRUNCATE TABLE credit_deposits, credit_balances RESTART IDENTITY`); err != nil {
			return fmt.Errorf("truncate ledger: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s - clear failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Allocator state cleared", clearLogPrefix))
	return nil
}
