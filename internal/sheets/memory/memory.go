// Package memory is an in-process ledger mirror for development and tests.
package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

// Store keeps rows in insertion order, like a sheet does.
type Store struct {
	mu   sync.Mutex
	rows []ports.LedgerRow
}

var _ ports.Ledger = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Upsert(_ context.Context, row ports.LedgerRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].Key == row.Key {
			s.rows[i] = row
			return nil
		}
	}
	s.rows = append(s.rows, row)
	return nil
}

func (s *Store) Remove(_ context.Context, kind core.Kind, itemID int64) error {
	key := ports.RowKey(kind, itemID)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].Key == key {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the stored rows.
func (s *Store) Rows(_ context.Context) ([]ports.LedgerRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.LedgerRow(nil), s.rows...), nil
}
