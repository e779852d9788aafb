package memory

import (
	"context"
	"sync"

	"catat/internal/core"
)

// Store keeps the ledger in process memory. Load and Save copy, so callers
// can never alias the stored slices.
type Store struct {
	mu     sync.Mutex
	ledger core.Ledger
	saves  int
}

func New() *Store {
	return &Store{}
}

// NewWith seeds the store with an existing ledger.
func NewWith(l core.Ledger) *Store {
	return &Store{ledger: l.Clone()}
}

func (s *Store) Load(_ context.Context) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Clone(), nil
}

func (s *Store) Save(_ context.Context, l core.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = l.Clone()
	s.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
