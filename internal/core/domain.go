// Package core holds the ledger, command and reminder types shared by every
// layer, together with amount and time-of-day parsing. Amounts are whole
// integers.
package core

import (
	"errors"
	"time"
)

const (
	Income  EntryKind = "income"
	Expense EntryKind = "expense"
)

const (
	ReminderPending   ReminderState = "pending"
	ReminderFired     ReminderState = "fired"
	ReminderCancelled ReminderState = "cancelled"
)

type (
	EntryKind     string
	ReminderState string

	LedgerEntry struct {
		Amount     int64
		RecordedAt time.Time
	}

	// Ledger holds the two append-only sequences. Insertion order equals
	// recording order.
	Ledger struct {
		Income  []LedgerEntry
		Expense []LedgerEntry
	}

	Totals struct {
		Income  int64
		Expense int64
		Balance int64
	}

	Reminder struct {
		ID        string
		FireAt    time.Time
		Sender    string
		Message   string
		State     ReminderState
		CreatedAt time.Time
	}

	// EntryRecorded is emitted after an entry has been persisted.
	EntryRecorded struct {
		Kind       EntryKind
		Amount     int64
		RecordedAt time.Time
		Sender     string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidTime      = errors.New("invalid time of day")
	ErrCorruptState     = errors.New("corrupt ledger state")
	ErrInvalidKind      = errors.New("invalid entry kind")
	ErrReminderNotFound = errors.New("reminder not found")
)

func (k EntryKind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

// Append adds an entry to the sequence selected by kind.
func (l *Ledger) Append(kind EntryKind, e LedgerEntry) error {
	switch kind {
	case Income:
		l.Income = append(l.Income, e)
	case Expense:
		l.Expense = append(l.Expense, e)
	default:
		return ErrInvalidKind
	}
	return nil
}

// Totals sums both sequences and derives the balance.
func (l Ledger) Totals() Totals {
	var t Totals
	for _, e := range l.Income {
		t.Income += e.Amount
	}
	for _, e := range l.Expense {
		t.Expense += e.Amount
	}
	t.Balance = t.Income - t.Expense
	return t
}

// Clone returns a copy that shares no backing arrays with l.
func (l Ledger) Clone() Ledger {
	return Ledger{
		Income:  append([]LedgerEntry(nil), l.Income...),
		Expense: append([]LedgerEntry(nil), l.Expense...),
	}
}

func (r Reminder) IsPending() bool {
	return r.State == ReminderPending
}
