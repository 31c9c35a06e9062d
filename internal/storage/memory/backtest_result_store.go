package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"crypto-strategy-lab/internal/domain"
	"crypto-strategy-lab/internal/storage"
)

// BacktestResultStore is an in-memory implementation of storage.BacktestResultStore.
type BacktestResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BacktestResult // keyed by backtest_id
}

// NewBacktestResultStore creates a new in-memory backtest result store.
func NewBacktestResultStore() *BacktestResultStore {
	return &BacktestResultStore{
		data: make(map[string]*domain.BacktestResult),
	}
}

// Insert adds a new result. Returns ErrDuplicateKey if backtest_id exists.
func (s *BacktestResultStore) Insert(_ context.Context, r *domain.BacktestResult) error {
	if r == nil || r.BacktestID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.BacktestID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.BacktestID] = r.Clone()
	return nil
}

// GetByID retrieves a result by its ID. Returns ErrNotFound if not exists.
func (s *BacktestResultStore) GetByID(_ context.Context, backtestID string) (*domain.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[backtestID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return r.Clone(), nil
}

// GetAll retrieves all results ordered by started_at ASC, backtest_id ASC.
func (s *BacktestResultStore) GetAll(_ context.Context) ([]*domain.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.BacktestResult, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, r.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].StartedAt.Before(result[j].StartedAt)
		}
		return result[i].BacktestID < result[j].BacktestID
	})

	return result, nil
}

// DeleteOlderThan removes results completed before cutoff.
func (s *BacktestResultStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, r := range s.data {
		if r.CompletedAt.Before(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed, nil
}

var _ storage.BacktestResultStore = (*BacktestResultStore)(nil)
