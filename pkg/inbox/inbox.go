// Package inbox holds the relay chain's asynchronous answers until the broker polls them.
// Each answer kind has a single slot: a new push overwrites an unread value and a check
// empties the slot.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/morezero/coretime-allocator/internal/metrics"
	"github.com/morezero/coretime-allocator/pkg/codec"
)

const logPrefix = "inbox:inbox"

// ErrTestHooksDisabled is returned by the Ensure* operations when test hooks are off.
var ErrTestHooksDisabled = errors.New("test hooks are disabled")

// Inbox is the notification inbox.
type Inbox struct {
	store     SlotStore
	testHooks bool
	metrics   *metrics.Metrics
}

// NewInboxParams holds parameters for creating an Inbox.
type NewInboxParams struct {
	Store SlotStore
	// EnableTestHooks allows EnsureNotifyCoreCount and EnsureNotifyRevenueInfo.
	EnableTestHooks bool
	Metrics         *metrics.Metrics
}

// NewInbox creates a new Inbox. A nil Store uses MemorySlots.
func NewInbox(params NewInboxParams) *Inbox {
	store := params.Store
	if store == nil {
		store = NewMemorySlots()
	}
	return &Inbox{store: store, testHooks: params.EnableTestHooks, metrics: params.Metrics}
}

// TestHooksEnabled reports whether the Ensure* operations are allowed.
func (in *Inbox) TestHooksEnabled() bool {
	return in.testHooks
}

// CheckCoreCount returns the pending core count, if any, and clears the slot.
func (in *Inbox) CheckCoreCount(ctx context.Context) (*uint16, error) {
	prev, err := in.take(ctx, SlotCoreCount)
	if err != nil || prev == nil {
		return nil, err
	}
	count, err := codec.DecodeCoreCount(prev)
	if err != nil {
		return nil, fmt.Errorf("%s - corrupt %s slot: %w", logPrefix, SlotCoreCount, err)
	}
	return &count, nil
}

// CheckRevenueInfo returns the pending revenue info, if any, and clears the slot.
func (in *Inbox) CheckRevenueInfo(ctx context.Context) (*codec.RevenueInfo, error) {
	prev, err := in.take(ctx, SlotRevenueInfo)
	if err != nil || prev == nil {
		return nil, err
	}
	info, err := codec.DecodeRevenueInfo(prev)
	if err != nil {
		return nil, fmt.Errorf("%s - corrupt %s slot: %w", logPrefix, SlotRevenueInfo, err)
	}
	return &info, nil
}

// NotifyCoreCount stores a core count pushed by the relay chain, replacing any unread value.
func (in *Inbox) NotifyCoreCount(ctx context.Context, count uint16) error {
	return in.put(ctx, SlotCoreCount, codec.EncodeCoreCount(count))
}

// NotifyRevenueInfo stores revenue info pushed by the relay chain, replacing any unread value.
func (in *Inbox) NotifyRevenueInfo(ctx context.Context, info codec.RevenueInfo) error {
	return in.put(ctx, SlotRevenueInfo, codec.EncodeRevenueInfo(info))
}

// Notify stores whichever value a decoded push carries.
func (in *Inbox) Notify(ctx context.Context, n codec.Notification) error {
	switch {
	case n.CoreCount != nil:
		return in.NotifyCoreCount(ctx, *n.CoreCount)
	case n.Revenue != nil:
		return in.NotifyRevenueInfo(ctx, *n.Revenue)
	default:
		return fmt.Errorf("%s - empty notification", logPrefix)
	}
}

// EnsureNotifyCoreCount force-sets the core count slot. Only allowed with test hooks.
func (in *Inbox) EnsureNotifyCoreCount(ctx context.Context, count uint16) error {
	if !in.testHooks {
		return ErrTestHooksDisabled
	}
	return in.NotifyCoreCount(ctx, count)
}

// EnsureNotifyRevenueInfo force-sets the revenue info slot. Only allowed with test hooks.
func (in *Inbox) EnsureNotifyRevenueInfo(ctx context.Context, info codec.RevenueInfo) error {
	if !in.testHooks {
		return ErrTestHooksDisabled
	}
	return in.NotifyRevenueInfo(ctx, info)
}

func (in *Inbox) take(ctx context.Context, slot string) ([]byte, error) {
	prev, err := in.store.SwapSlot(ctx, slot, nil)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read %s slot: %w", logPrefix, slot, err)
	}
	if prev == nil {
		in.metrics.ObserveNotification(slot, "empty")
		return nil, nil
	}
	in.metrics.ObserveNotification(slot, "check")
	return prev, nil
}

func (in *Inbox) put(ctx context.Context, slot string, payload []byte) error {
	prev, err := in.store.SwapSlot(ctx, slot, payload)
	if err != nil {
		return fmt.Errorf("%s - failed to write %s slot: %w", logPrefix, slot, err)
	}
	in.metrics.ObserveNotification(slot, "notify")
	if prev != nil {
		in.metrics.ObserveNotification(slot, "overwrite")
		slog.Debug(fmt.Sprintf("%s - Unread %s value overwritten", logPrefix, slot))
	}
	return nil
}
