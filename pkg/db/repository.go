package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/coretime-allocator/pkg/codec"
	"github.com/morezero/coretime-allocator/pkg/credit"
)

const repoLogPrefix = "db:repository"

// pgCheckViolation is the SQLSTATE for a CHECK constraint failure.
const pgCheckViolation = "23514"

// ErrUnknownSlot is returned when a slot row does not exist (migrations not applied).
var ErrUnknownSlot = errors.New("unknown notification slot")

// Repository provides database access for inbox slots and the credit ledger.
type Repository struct {
	pool           *pgxpool.Pool
	minimumBalance codec.Balance
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithMinimumBalance sets the smallest first deposit accepted for a new account.
func (r *Repository) WithMinimumBalance(b codec.Balance) *Repository {
	r.minimumBalance = b
	return r
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// =========================================================================
// NOTIFICATION SLOTS
// =========================================================================

// SwapSlot implements inbox.SlotStore in one statement. The row lock taken by the
// subquery makes concurrent swaps on the same slot serialize, so each stored payload
// is returned to exactly one caller.
func (r *Repository) SwapSlot(ctx context.Context, slot string, payload []byte) ([]byte, error) {
	var prev []byte
	err := r.pool.QueryRow(ctx,
		`UPDATE notification_slots AS s
		 SET payload = $2, modified = now()
		 FROM (SELECT slot, payload FROM notification_slots WHERE slot = $1 FOR UPDATE) AS old
		 WHERE s.slot = old.slot
		 RETURNING old.payload`, slot, payload).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s - %w: %s", repoLogPrefix, ErrUnknownSlot, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("%s - swap %s: %w", repoLogPrefix, slot, err)
	}
	return prev, nil
}

// =========================================================================
// CREDIT LEDGER
// =========================================================================

// Deposit implements credit.Depositor. The balance update and the deposit log row are
// written in one transaction.
func (r *Repository) Deposit(ctx context.Context, who codec.AccountID, amount codec.Balance) error {
	if amount.IsZero() {
		return nil
	}
	slog.Debug(fmt.Sprintf("%s - Deposit %s to %s", repoLogPrefix, amount, who))

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var current pgtype.Numeric
		err := tx.QueryRow(ctx,
			`SELECT balance FROM credit_balances WHERE account = $1 FOR UPDATE`, who[:]).Scan(&current)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			if amount.Cmp(r.minimumBalance) < 0 {
				return fmt.Errorf("%w: %s < %s", credit.ErrBelowMinimum, amount, r.minimumBalance)
			}
		case err != nil:
			return fmt.Errorf("read balance: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO credit_balances (account, balance) VALUES ($1, $2)
			 ON CONFLICT (account) DO UPDATE
			 SET balance = credit_balances.balance + EXCLUDED.balance, modified = now()`,
			who[:], balanceToNumeric(amount))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
				return fmt.Errorf("%w: %v", credit.ErrOverflow, pgErr.Message)
			}
			return fmt.Errorf("update balance: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO credit_deposits (account, amount) VALUES ($1, $2)`,
			who[:], balanceToNumeric(amount))
		if err != nil {
			return fmt.Errorf("log deposit: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s - deposit failed: %w", repoLogPrefix, err)
	}
	return nil
}

// Balance implements credit.BalanceReader. Unknown accounts have a zero balance.
func (r *Repository) Balance(ctx context.Context, who codec.AccountID) (codec.Balance, error) {
	var n pgtype.Numeric
	err := r.pool.QueryRow(ctx,
		`SELECT balance FROM credit_balances WHERE account = $1`, who[:]).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return codec.Balance{}, nil
	}
	if err != nil {
		return codec.Balance{}, fmt.Errorf("%s - read balance: %w", repoLogPrefix, err)
	}
	b, err := numericToBalance(n)
	if err != nil {
		return codec.Balance{}, fmt.Errorf("%s - %w", repoLogPrefix, err)
	}
	return b, nil
}

// ListDeposits returns the most recent deposits into who, newest first.
func (r *Repository) ListDeposits(ctx context.Context, who codec.AccountID, limit int) ([]CreditDeposit, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, account, amount, created FROM credit_deposits
		 WHERE account = $1 ORDER BY id DESC LIMIT $2`, who[:], limit)
	if err != nil {
		return nil, fmt.Errorf("%s - list deposits: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []CreditDeposit
	for rows.Next() {
		var (
			d       CreditDeposit
			account []byte
			amount  pgtype.Numeric
		)
		if err := rows.Scan(&d.ID, &account, &amount, &d.Created); err != nil {
			return nil, fmt.Errorf("%s - scan deposit: %w", repoLogPrefix, err)
		}
		copy(d.Account[:], account)
		if d.Amount, err = numericToBalance(amount); err != nil {
			return nil, fmt.Errorf("%s - deposit %d: %w", repoLogPrefix, d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
