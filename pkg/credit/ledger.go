package credit

import (
	"context"
	"fmt"
	"sync"

	"github.com/morezero/coretime-allocator/pkg/codec"
)

// MemoryLedger is an in-process Depositor and BalanceReader.
type MemoryLedger struct {
	mu       sync.Mutex
	minimum  codec.Balance
	balances map[codec.AccountID]codec.Balance
}

// NewMemoryLedger creates a ledger. New accounts must receive at least minimum.
func NewMemoryLedger(minimum codec.Balance) *MemoryLedger {
	return &MemoryLedger{minimum: minimum, balances: make(map[codec.AccountID]codec.Balance)}
}

// Deposit implements Depositor.
func (l *MemoryLedger) Deposit(_ context.Context, who codec.AccountID, amount codec.Balance) error {
	if amount.IsZero() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current, exists := l.balances[who]
	if !exists && amount.Cmp(l.minimum) < 0 {
		return fmt.Errorf("%w: %s < %s", ErrBelowMinimum, amount, l.minimum)
	}
	sum, ok := current.CheckedAdd(amount)
	if !ok {
		return fmt.Errorf("%w: %s + %s", ErrOverflow, current, amount)
	}
	l.balances[who] = sum
	return nil
}

// Balance implements BalanceReader.
func (l *MemoryLedger) Balance(_ context.Context, who codec.AccountID) (codec.Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[who], nil
}
