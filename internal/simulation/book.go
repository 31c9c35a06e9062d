package simulation

import (
	"fmt"

	"crypto-strategy-lab/internal/domain"
)

// Book stores the trades of one run in an arena indexed by position.
// Open trades are tracked by id in opening order; closed trades are
// appended to a log in closing order. Trades never move in the arena,
// so an index stays valid for the whole run.
type Book struct {
	arena  []domain.Trade
	byID   map[string]int
	open   []int
	closed []int
}

// NewBook creates an empty trade book.
func NewBook() *Book {
	return &Book{
		byID: make(map[string]int),
	}
}

// Add registers t as open and returns its arena index.
func (b *Book) Add(t domain.Trade) (int, error) {
	if _, exists := b.byID[t.ID]; exists {
		return 0, fmt.Errorf("trade %s already in book", t.ID)
	}
	idx := len(b.arena)
	b.arena = append(b.arena, t)
	b.byID[t.ID] = idx
	b.open = append(b.open, idx)
	return idx, nil
}

// At returns the trade stored at idx. The pointer is valid until the next Add.
func (b *Book) At(idx int) *domain.Trade {
	return &b.arena[idx]
}

// Lookup returns the arena index of the trade with id.
func (b *Book) Lookup(id string) (int, bool) {
	idx, ok := b.byID[id]
	return idx, ok
}

// OpenIndices returns a copy of the open trade indices in opening order.
func (b *Book) OpenIndices() []int {
	out := make([]int, len(b.open))
	copy(out, b.open)
	return out
}

// OpenTrades returns pointers to open trades in opening order.
// Pointers are valid until the next Add.
func (b *Book) OpenTrades() []*domain.Trade {
	out := make([]*domain.Trade, len(b.open))
	for i, idx := range b.open {
		out[i] = &b.arena[idx]
	}
	return out
}

// OpenCount returns the number of open trades.
func (b *Book) OpenCount() int {
	return len(b.open)
}

// MarkClosed moves the trade at idx from the open set to the closed log.
func (b *Book) MarkClosed(idx int) error {
	for i, o := range b.open {
		if o == idx {
			b.open = append(b.open[:i], b.open[i+1:]...)
			b.closed = append(b.closed, idx)
			return nil
		}
	}
	return fmt.Errorf("trade at index %d is not open", idx)
}

// ClosedTrades returns copies of closed trades in closing order.
func (b *Book) ClosedTrades() []domain.Trade {
	out := make([]domain.Trade, len(b.closed))
	for i, idx := range b.closed {
		out[i] = b.arena[idx]
	}
	return out
}

// ClosedCount returns the number of closed trades.
func (b *Book) ClosedCount() int {
	return len(b.closed)
}
