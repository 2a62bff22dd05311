//go:build integration

package redisstore

import (
	"context"
	"os"
	"testing"

	"github.com/morezero/coretime-allocator/pkg/codec"
	"github.com/morezero/coretime-allocator/pkg/inbox"
)

const storeTestPrefix = "redisstore:store_integration_test"

func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set; skipping integration test")
	}
	s, err := Connect(context.Background(), url, "coretime:test:"+t.Name()+":")
	if err != nil {
		t.Fatalf("%s - connect failed: %v", storeTestPrefix, err)
	}
	t.Cleanup(func() {
		s.Clear(context.Background(), inbox.SlotCoreCount, inbox.SlotRevenueInfo)
		s.Close()
	})
	return s
}

func TestStore_SwapSlot(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	prev, err := s.SwapSlot(ctx, inbox.SlotCoreCount, []byte{1, 0})
	if err != nil || prev != nil {
		t.Fatalf("%s - first swap = %v, %v", storeTestPrefix, prev, err)
	}
	prev, err = s.SwapSlot(ctx, inbox.SlotCoreCount, []byte{2, 0})
	if err != nil || len(prev) != 2 || prev[0] != 1 {
		t.Fatalf("%s - overwrite swap = %v, %v", storeTestPrefix, prev, err)
	}
	prev, err = s.SwapSlot(ctx, inbox.SlotCoreCount, nil)
	if err != nil || len(prev) != 2 || prev[0] != 2 {
		t.Fatalf("%s - clear swap = %v, %v", storeTestPrefix, prev, err)
	}
	prev, err = s.SwapSlot(ctx, inbox.SlotCoreCount, nil)
	if err != nil || prev != nil {
		t.Fatalf("%s - empty swap = %v, %v", storeTestPrefix, prev, err)
	}
}

func TestStore_BacksInbox(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	in := inbox.NewInbox(inbox.NewInboxParams{Store: s})

	info := codec.RevenueInfo{When: 80, Amount: codec.MaxBalance}
	if err := in.NotifyRevenueInfo(ctx, info); err != nil {
		t.Fatalf("%s - notify failed: %v", storeTestPrefix, err)
	}
	got, err := in.CheckRevenueInfo(ctx)
	if err != nil || got == nil || !got.Equal(info) {
		t.Fatalf("%s - check = %+v, %v", storeTestPrefix, got, err)
	}
	if got, _ := in.CheckRevenueInfo(ctx); got != nil {
		t.Errorf("%s - second check = %+v, want empty", storeTestPrefix, got)
	}
}
