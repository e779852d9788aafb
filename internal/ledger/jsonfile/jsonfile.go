// Package jsonfile stores the ledger as a single JSON document on disk:
//
//	{"pemasukan": [{"jumlah": 500, "tanggal": "..."}], "pengeluaran": [...]}
//
// The document is rewritten whole on every Save.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"catat/internal/core"
)

type (
	document struct {
		Income  []entry `json:"pemasukan"`
		Expense []entry `json:"pengeluaran"`
	}

	entry struct {
		Amount     int64     `json:"jumlah"`
		RecordedAt time.Time `json:"tanggal"`
	}
)

type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Load reads the file. A missing file is an empty ledger; anything that does
// not decode is core.ErrCorruptState.
func (s *Store) Load(_ context.Context) (core.Ledger, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Ledger{}, nil
	}
	if err != nil {
		return core.Ledger{}, fmt.Errorf("read ledger file %s: %w", s.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return core.Ledger{}, fmt.Errorf("%w: %s: %v", core.ErrCorruptState, s.path, err)
	}
	return fromDocument(doc), nil
}

// Save writes to a temporary file in the same directory and renames it over
// the target, so a crash never leaves a half-written ledger.
func (s *Store) Save(_ context.Context, l core.Ledger) error {
	data, err := json.MarshalIndent(toDocument(l), "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".db-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}

func toDocument(l core.Ledger) document {
	doc := document{
		Income:  make([]entry, 0, len(l.Income)),
		Expense: make([]entry, 0, len(l.Expense)),
	}
	for _, e := range l.Income {
		doc.Income = append(doc.Income, entry{Amount: e.Amount, RecordedAt: e.RecordedAt})
	}
	for _, e := range l.Expense {
		doc.Expense = append(doc.Expense, entry{Amount: e.Amount, RecordedAt: e.RecordedAt})
	}
	return doc
}

func fromDocument(doc document) core.Ledger {
	var l core.Ledger
	for _, e := range doc.Income {
		l.Income = append(l.Income, core.LedgerEntry{Amount: e.Amount, RecordedAt: e.RecordedAt})
	}
	for _, e := range doc.Expense {
		l.Expense = append(l.Expense, core.LedgerEntry{Amount: e.Amount, RecordedAt: e.RecordedAt})
	}
	return l
}
