// Package memory is an in-process EntryAppender used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"catat/internal/core"
	"catat/internal/sheets"
)

var _ sheets.EntryAppender = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	rows [][]any
	// Fail, when set, is returned by the next AppendEntry and then cleared.
	Fail error
}

func New() *Store {
	return &Store{}
}

func (s *Store) AppendEntry(_ context.Context, e core.EntryRecorded) (string, error) {
	if err := e.Kind.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		err := s.Fail
		s.Fail = nil
		return "", err
	}
	s.rows = append(s.rows, sheets.Row(e))
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of the appended rows.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
