// Package memory is the process-local expense store used in development
// and tests.
package memory

import (
	"context"
	"sync"

	"expensetracker/internal/core"
)

type record struct {
	id      int64
	expense core.Expense
}

type Store struct {
	mu     sync.RWMutex
	nextID int64
	byDate map[string][]record
}

func New() *Store {
	return &Store{byDate: make(map[string][]record)}
}

// Save stores a copy of e under date and returns its id. Ids start at 1
// and are never reused.
func (s *Store) Save(_ context.Context, date string, e core.Expense) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.byDate[date] = append(s.byDate[date], record{id: s.nextID, expense: e.Clone()})
	return s.nextID, nil
}

// ListByDate returns the expenses saved under date in insertion order,
// each carrying its id.
func (s *Store) ListByDate(_ context.Context, date string) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.byDate[date]
	out := make([]core.Expense, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.expense.With(core.FieldID, r.id))
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Len reports how many expenses are held across all dates.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, recs := range s.byDate {
		n += len(recs)
	}
	return n
}
