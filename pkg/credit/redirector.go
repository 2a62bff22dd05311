// Package credit routes the broker's leftover credit into the staking pot account.
package credit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/morezero/coretime-allocator/internal/metrics"
	"github.com/morezero/coretime-allocator/pkg/codec"
)

const logPrefix = "credit:redirector"

var (
	// ErrBelowMinimum means a deposit would create an account holding less than the minimum balance.
	ErrBelowMinimum = errors.New("deposit below minimum balance")
	// ErrOverflow means a deposit would push a balance past the u128 range.
	ErrOverflow = errors.New("balance overflow")
)

// Depositor credits an account.
type Depositor interface {
	Deposit(ctx context.Context, who codec.AccountID, amount codec.Balance) error
}

// BalanceReader reads an account balance.
type BalanceReader interface {
	Balance(ctx context.Context, who codec.AccountID) (codec.Balance, error)
}

// StakingPot returns the staking pot account, derived from codec.StakingPotID.
func StakingPot() codec.AccountID {
	acc, err := codec.PalletAccount(codec.StakingPotID)
	if err != nil {
		panic(err)
	}
	return acc
}

// Redirector deposits credit into a fixed destination account.
type Redirector struct {
	depositor Depositor
	pot       codec.AccountID
	metrics   *metrics.Metrics
}

// NewRedirectorParams holds parameters for creating a Redirector.
type NewRedirectorParams struct {
	Depositor Depositor
	// Pot defaults to StakingPot().
	Pot     *codec.AccountID
	Metrics *metrics.Metrics
}

// NewRedirector creates a new Redirector.
func NewRedirector(params NewRedirectorParams) *Redirector {
	pot := StakingPot()
	if params.Pot != nil {
		pot = *params.Pot
	}
	return &Redirector{depositor: params.Depositor, pot: pot, metrics: params.Metrics}
}

// Pot returns the destination account.
func (r *Redirector) Pot() codec.AccountID {
	return r.pot
}

// Redirect deposits the whole amount into the pot. A zero amount is a no-op.
func (r *Redirector) Redirect(ctx context.Context, amount codec.Balance) error {
	if amount.IsZero() {
		return nil
	}
	if err := r.depositor.Deposit(ctx, r.pot, amount); err != nil {
		r.metrics.ObserveCredit("failed")
		return fmt.Errorf("%s - failed to deposit %s into %s: %w", logPrefix, amount, r.pot, err)
	}
	r.metrics.ObserveCredit("ok")
	slog.Info(fmt.Sprintf("%s - Redirected %s to %s", logPrefix, amount, r.pot))
	return nil
}

// OnUnbalanced redirects credit the marketplace has no other use for. Failures are
// logged and the credit is dropped.
func (r *Redirector) OnUnbalanced(ctx context.Context, amount codec.Balance) {
	if err := r.Redirect(ctx, amount); err != nil {
		slog.Error(fmt.Sprintf("%s - Dropping unbalanced credit %s: %v", logPrefix, amount, err))
	}
}
