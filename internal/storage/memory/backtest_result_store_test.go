package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/storage"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func makeResult(id string, startedAt time.Time) *domain.BacktestResult {
	return &domain.BacktestResult{
		BacktestID:  id,
		Strategy:    domain.Strategy{Name: "momentum", Parameters: domain.Parameters{"stopLoss": 0.02}},
		StartedAt:   startedAt,
		CompletedAt: startedAt.Add(time.Second),
		Summary: domain.SimulationSummary{
			Status: domain.RunStatusCompleted,
			Trades: []domain.Trade{{ID: "t1"}},
		},
	}
}

func TestBacktestResultStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewBacktestResultStore()

	r := makeResult("bt-1", base)
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "bt-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Strategy.Name != "momentum" || len(got.Summary.Trades) != 1 {
		t.Errorf("unexpected result: %+v", got)
	}

	// Mutating the input or the returned copy must not affect the store
	r.Strategy.Parameters["stopLoss"] = 0.5
	got.Summary.Trades[0].ID = "mutated"

	again, _ := store.GetByID(ctx, "bt-1")
	if again.Strategy.Parameters["stopLoss"] != 0.02 {
		t.Error("store shares parameters with caller")
	}
	if again.Summary.Trades[0].ID != "t1" {
		t.Error("store shares trades with caller")
	}
}

func TestBacktestResultStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewBacktestResultStore()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.BacktestResult{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty id, got %v", err)
	}

	if err := store.Insert(ctx, makeResult("bt-1", base)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, makeResult("bt-1", base)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBacktestResultStore_GetAllOrdered(t *testing.T) {
	ctx := context.Background()
	store := NewBacktestResultStore()

	for _, r := range []*domain.BacktestResult{
		makeResult("c", base.Add(2*time.Hour)),
		makeResult("b", base),
		makeResult("a", base),
	} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if all[i].BacktestID != id {
			t.Errorf("position %d: got %s, want %s", i, all[i].BacktestID, id)
		}
	}
}

func TestBacktestResultStore_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	store := NewBacktestResultStore()

	_ = store.Insert(ctx, makeResult("old", base))
	_ = store.Insert(ctx, makeResult("new", base.Add(48*time.Hour)))

	removed, err := store.DeleteOlderThan(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, err := store.GetByID(ctx, "old"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("old result should be gone")
	}
	if _, err := store.GetByID(ctx, "new"); err != nil {
		t.Error("new result should remain")
	}
}
