package memory

import (
	"context"
	"sync"

	"crypto-strategy-lab/internal/storage"
)

// ImportCheckpointStore is an in-memory implementation of storage.ImportCheckpointStore.
type ImportCheckpointStore struct {
	mu   sync.RWMutex
	data map[string]storage.ImportCheckpoint // keyed by (symbol, timeframe)
}

// NewImportCheckpointStore creates a new in-memory checkpoint store.
func NewImportCheckpointStore() *ImportCheckpointStore {
	return &ImportCheckpointStore{
		data: make(map[string]storage.ImportCheckpoint),
	}
}

// Get returns the checkpoint for symbol/timeframe.
func (s *ImportCheckpointStore) Get(_ context.Context, symbol, timeframe string) (*storage.ImportCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, exists := s.data[seriesKey(symbol, timeframe)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &cp, nil
}

// Set saves the checkpoint, replacing any previous one.
func (s *ImportCheckpointStore) Set(_ context.Context, cp *storage.ImportCheckpoint) error {
	if cp == nil || cp.Symbol == "" || cp.Timeframe == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[seriesKey(cp.Symbol, cp.Timeframe)] = *cp
	return nil
}

var _ storage.ImportCheckpointStore = (*ImportCheckpointStore)(nil)
