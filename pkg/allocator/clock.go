package allocator

import (
	"sync/atomic"

	"github.com/morezero/coretime-allocator/pkg/codec"
)

// Clock reports the current block number of the allocator's own chain.
type Clock interface {
	Latest() codec.BlockNumber
}

// HeadClock is a Clock advanced by chain head updates.
type HeadClock struct {
	head atomic.Uint32
}

// NewHeadClock creates a clock starting at start.
func NewHeadClock(start codec.BlockNumber) *HeadClock {
	c := &HeadClock{}
	c.head.Store(start)
	return c
}

// Latest implements Clock.
func (c *HeadClock) Latest() codec.BlockNumber {
	return c.head.Load()
}

// Advance moves the clock to n and reports whether it moved. Heads at or below the
// current one are ignored.
func (c *HeadClock) Advance(n codec.BlockNumber) bool {
	for {
		cur := c.head.Load()
		if n <= cur {
			return false
		}
		if c.head.CompareAndSwap(cur, n) {
			return true
		}
	}
}
