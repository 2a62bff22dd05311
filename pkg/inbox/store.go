package inbox

import (
	"context"
	"sync"
)

// Slot names.
const (
	SlotCoreCount   = "core_count"
	SlotRevenueInfo = "revenue_info"
)

// SlotStore holds at most one payload per slot. SwapSlot atomically replaces the slot's
// payload and returns the previous one (nil when the slot was empty). A nil payload
// clears the slot.
type SlotStore interface {
	SwapSlot(ctx context.Context, slot string, payload []byte) ([]byte, error)
}

// MemorySlots is an in-process SlotStore.
type MemorySlots struct {
	mu    sync.Mutex
	slots map[string][]byte
}

// NewMemorySlots creates an empty MemorySlots.
func NewMemorySlots() *MemorySlots {
	return &MemorySlots{slots: make(map[string][]byte)}
}

// SwapSlot implements SlotStore.
func (m *MemorySlots) SwapSlot(_ context.Context, slot string, payload []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.slots[slot]
	if payload == nil {
		delete(m.slots, slot)
	} else {
		m.slots[slot] = append([]byte(nil), payload...)
	}
	return prev, nil
}
