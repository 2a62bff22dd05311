package credit

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/morezero/coretime-allocator/internal/metrics"
	"github.com/morezero/coretime-allocator/pkg/codec"
)

const redirectorTestPrefix = "credit:redirector_test"

func TestStakingPot(t *testing.T) {
	want := "0x6d6f646c506f745374616b650000000000000000000000000000000000000000"
	if got := StakingPot().String(); got != want {
		t.Errorf("%s - StakingPot() = %s, want %s", redirectorTestPrefix, got, want)
	}
}

func TestRedirect_PreservesAmount(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger(codec.NewBalance(1))
	r := NewRedirector(NewRedirectorParams{Depositor: ledger})

	wide, err := codec.ParseBalance("18446744073709551619") // 2^64 + 3
	if err != nil {
		t.Fatalf("%s - ParseBalance: %v", redirectorTestPrefix, err)
	}
	amounts := []codec.Balance{codec.NewBalance(5), codec.NewBalance(0), wide}
	for _, a := range amounts {
		if err := r.Redirect(ctx, a); err != nil {
			t.Fatalf("%s - Redirect(%s) failed: %v", redirectorTestPrefix, a, err)
		}
	}

	got, _ := ledger.Balance(ctx, r.Pot())
	if want := "18446744073709551624"; got.String() != want {
		t.Errorf("%s - pot balance = %s, want %s", redirectorTestPrefix, got, want)
	}
}

func TestRedirect_ZeroIsNoop(t *testing.T) {
	calls := 0
	dep := depositorFunc(func(context.Context, codec.AccountID, codec.Balance) error {
		calls++
		return nil
	})
	r := NewRedirector(NewRedirectorParams{Depositor: dep})

	if err := r.Redirect(context.Background(), codec.Balance{}); err != nil {
		t.Fatalf("%s - unexpected error: %v", redirectorTestPrefix, err)
	}
	if calls != 0 {
		t.Errorf("%s - depositor called %d times for zero amount", redirectorTestPrefix, calls)
	}
}

func TestRedirect_Failures(t *testing.T) {
	ctx := context.Background()
	met := metrics.NewMetrics()

	ledger := NewMemoryLedger(codec.NewBalance(100))
	r := NewRedirector(NewRedirectorParams{Depositor: ledger, Metrics: met})
	if err := r.Redirect(ctx, codec.NewBalance(10)); !errors.Is(err, ErrBelowMinimum) {
		t.Errorf("%s - expected ErrBelowMinimum, got %v", redirectorTestPrefix, err)
	}

	if err := r.Redirect(ctx, codec.MaxBalance); err != nil {
		t.Fatalf("%s - unexpected error: %v", redirectorTestPrefix, err)
	}
	if err := r.Redirect(ctx, codec.NewBalance(1)); !errors.Is(err, ErrOverflow) {
		t.Errorf("%s - expected ErrOverflow, got %v", redirectorTestPrefix, err)
	}

	if got := testutil.ToFloat64(met.CreditTotal.WithLabelValues("failed")); got != 2 {
		t.Errorf("%s - failed count = %v, want 2", redirectorTestPrefix, got)
	}
	if got := testutil.ToFloat64(met.CreditTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("%s - ok count = %v, want 1", redirectorTestPrefix, got)
	}
}

func TestRedirect_CustomPot(t *testing.T) {
	ctx := context.Background()
	var pot codec.AccountID
	pot[0] = 0xee
	ledger := NewMemoryLedger(codec.Balance{})
	r := NewRedirector(NewRedirectorParams{Depositor: ledger, Pot: &pot})

	r.Redirect(ctx, codec.NewBalance(3))
	if got, _ := ledger.Balance(ctx, pot); !got.Equal(codec.NewBalance(3)) {
		t.Errorf("%s - custom pot balance = %s, want 3", redirectorTestPrefix, got)
	}
	if got, _ := ledger.Balance(ctx, StakingPot()); !got.IsZero() {
		t.Errorf("%s - staking pot should be untouched, got %s", redirectorTestPrefix, got)
	}
}

func TestOnUnbalanced_DropsOnFailure(t *testing.T) {
	dep := depositorFunc(func(context.Context, codec.AccountID, codec.Balance) error {
		return errors.New("ledger down")
	})
	r := NewRedirector(NewRedirectorParams{Depositor: dep})

	// Must not panic or block.
	r.OnUnbalanced(context.Background(), codec.NewBalance(1))
}

type depositorFunc func(ctx context.Context, who codec.AccountID, amount codec.Balance) error

func (f depositorFunc) Deposit(ctx context.Context, who codec.AccountID, amount codec.Balance) error {
	return f(ctx, who, amount)
}
