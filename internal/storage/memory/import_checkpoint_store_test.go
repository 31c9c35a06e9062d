package memory

import (
	"context"
	"errors"
	"testing"

	"crypto-strategy-lab/internal/storage"
)

func TestImportCheckpointStore(t *testing.T) {
	ctx := context.Background()
	store := NewImportCheckpointStore()

	if _, err := store.Get(ctx, "BTC/USDT", "1h"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	cp := &storage.ImportCheckpoint{Symbol: "BTC/USDT", Timeframe: "1h", LastTimestampMs: 1000, Rows: 10}
	if err := store.Set(ctx, cp); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	cp.Rows = 99 // caller mutation must not leak

	got, err := store.Get(ctx, "BTC/USDT", "1h")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.LastTimestampMs != 1000 || got.Rows != 10 {
		t.Errorf("unexpected checkpoint: %+v", got)
	}

	if err := store.Set(ctx, &storage.ImportCheckpoint{Symbol: "BTC/USDT", Timeframe: "1h", LastTimestampMs: 2000, Rows: 20}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, _ = store.Get(ctx, "BTC/USDT", "1h")
	if got.LastTimestampMs != 2000 {
		t.Errorf("expected replaced checkpoint, got %+v", got)
	}

	if err := store.Set(ctx, &storage.ImportCheckpoint{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
