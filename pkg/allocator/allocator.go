// Package allocator is the broker-facing surface of the coretime bridge: it sends the four
// relay chain requests, drains the inbox and redirects leftover credit.
package allocator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/morezero/coretime-allocator/pkg/codec"
	"github.com/morezero/coretime-allocator/pkg/credit"
	"github.com/morezero/coretime-allocator/pkg/inbox"
	"github.com/morezero/coretime-allocator/pkg/messenger"
)

const logPrefix = "allocator:allocator"

// Allocator aggregates the messenger, inbox, credit redirector and clock.
type Allocator struct {
	messenger  *messenger.Messenger
	inbox      *inbox.Inbox
	redirector *credit.Redirector
	clock      Clock
	config     BrokerConfig
	checks     map[string]HealthCheck
}

// NewAllocatorParams holds parameters for creating an Allocator.
type NewAllocatorParams struct {
	Messenger  *messenger.Messenger
	Inbox      *inbox.Inbox
	Redirector *credit.Redirector
	Clock      Clock
	// Config defaults to DefaultBrokerConfig().
	Config *BrokerConfig
	// Checks are run by Health, keyed by dependency name.
	Checks map[string]HealthCheck
}

// NewAllocator creates a new Allocator.
func NewAllocator(params NewAllocatorParams) *Allocator {
	cfg := DefaultBrokerConfig()
	if params.Config != nil {
		cfg = *params.Config
	}
	clock := params.Clock
	if clock == nil {
		clock = NewHeadClock(0)
	}
	return &Allocator{
		messenger:  params.Messenger,
		inbox:      params.Inbox,
		redirector: params.Redirector,
		clock:      clock,
		config:     cfg,
		checks:     params.Checks,
	}
}

// RequestCoreCount asks the relay chain for count cores. The answer arrives later through
// CheckNotifyCoreCount. Transport failures are logged and counted, never returned as
// errors; the Outcome is informational.
func (a *Allocator) RequestCoreCount(ctx context.Context, count codec.CoreIndex) *messenger.Outcome {
	return a.fireAndForget(a.messenger.RequestCoreCount(ctx, count))
}

// RequestRevenueInfoAt asks for revenue accounting at when. The answer arrives later
// through CheckNotifyRevenueInfo.
func (a *Allocator) RequestRevenueInfoAt(ctx context.Context, when codec.BlockNumber) *messenger.Outcome {
	return a.fireAndForget(a.messenger.RequestRevenueInfoAt(ctx, when))
}

// CreditAccount credits who with amount on the relay chain.
func (a *Allocator) CreditAccount(ctx context.Context, who codec.AccountID, amount codec.Balance) *messenger.Outcome {
	return a.fireAndForget(a.messenger.CreditAccount(ctx, who, amount))
}

// AssignCore binds core to assignment from begin, optionally until endHint.
func (a *Allocator) AssignCore(ctx context.Context, core codec.CoreIndex, begin codec.BlockNumber, assignment []codec.AssignmentPart, endHint *codec.BlockNumber) *messenger.Outcome {
	return a.fireAndForget(a.messenger.AssignCore(ctx, core, begin, assignment, endHint))
}

// CheckNotifyCoreCount returns and clears the pending core count.
func (a *Allocator) CheckNotifyCoreCount(ctx context.Context) (*uint16, error) {
	return a.inbox.CheckCoreCount(ctx)
}

// CheckNotifyRevenueInfo returns and clears the pending revenue info.
func (a *Allocator) CheckNotifyRevenueInfo(ctx context.Context) (*codec.RevenueInfo, error) {
	return a.inbox.CheckRevenueInfo(ctx)
}

// EnsureNotifyCoreCount force-sets the core count slot when test hooks are enabled.
func (a *Allocator) EnsureNotifyCoreCount(ctx context.Context, count uint16) error {
	return a.inbox.EnsureNotifyCoreCount(ctx, count)
}

// EnsureNotifyRevenueInfo force-sets the revenue info slot when test hooks are enabled.
func (a *Allocator) EnsureNotifyRevenueInfo(ctx context.Context, info codec.RevenueInfo) error {
	return a.inbox.EnsureNotifyRevenueInfo(ctx, info)
}

// Latest returns the current block number.
func (a *Allocator) Latest() codec.BlockNumber {
	return a.clock.Latest()
}

// RedirectCredit sends leftover credit to the staking pot and returns the deposit result.
func (a *Allocator) RedirectCredit(ctx context.Context, amount codec.Balance) error {
	return a.redirector.Redirect(ctx, amount)
}

// OnUnbalanced is RedirectCredit with failures logged and dropped.
func (a *Allocator) OnUnbalanced(ctx context.Context, amount codec.Balance) {
	a.redirector.OnUnbalanced(ctx, amount)
}

// TestHooksEnabled reports whether the Ensure* operations are allowed.
func (a *Allocator) TestHooksEnabled() bool {
	return a.inbox.TestHooksEnabled()
}

func (a *Allocator) fireAndForget(out *messenger.Outcome, err error) *messenger.Outcome {
	if err != nil {
		slog.Debug(fmt.Sprintf("%s - %s (%s) not handed off: %v", logPrefix, out.Call, out.ID, err))
	}
	return out
}

// Pot returns the account RedirectCredit deposits into.
func (a *Allocator) Pot() codec.AccountID {
	return a.redirector.Pot()
}
