// Package ledger serialises read-modify-write cycles over a Store.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"catat/internal/core"
)

// Book is the single shared ledger. Store implementations do not lock, so
// every mutation goes through Book which holds mu across load-mutate-save.
type Book struct {
	mu        sync.Mutex
	store     Store
	publisher EventPublisher
	now       func() time.Time
}

// Option configures a Book.
type Option func(*Book)

// WithPublisher attaches an event publisher. Publish failures are logged and
// never undo a saved entry.
func WithPublisher(p EventPublisher) Option {
	return func(b *Book) { b.publisher = p }
}

// WithClock overrides time.Now for recorded timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Book) { b.now = now }
}

func NewBook(store Store, opts ...Option) *Book {
	b := &Book{store: store, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Record appends one entry and persists the ledger.
func (b *Book) Record(ctx context.Context, kind core.EntryKind, amount int64, sender string) (core.LedgerEntry, error) {
	if err := kind.Validate(); err != nil {
		return core.LedgerEntry{}, err
	}

	b.mu.Lock()
	l, err := b.store.Load(ctx)
	if err != nil {
		b.mu.Unlock()
		return core.LedgerEntry{}, fmt.Errorf("load ledger: %w", err)
	}
	entry := core.LedgerEntry{Amount: amount, RecordedAt: b.now()}
	if err := l.Append(kind, entry); err != nil {
		b.mu.Unlock()
		return core.LedgerEntry{}, err
	}
	if err := b.store.Save(ctx, l); err != nil {
		b.mu.Unlock()
		return core.LedgerEntry{}, fmt.Errorf("save ledger: %w", err)
	}
	b.mu.Unlock()

	slog.InfoContext(ctx, "Ledger entry recorded",
		"kind", kind,
		"amount", amount,
		"income_entries", len(l.Income),
		"expense_entries", len(l.Expense))

	b.publish(ctx, core.EntryRecorded{
		Kind:       kind,
		Amount:     amount,
		RecordedAt: entry.RecordedAt,
		Sender:     sender,
	})

	return entry, nil
}

// Totals loads the ledger and sums it. It never writes.
func (b *Book) Totals(ctx context.Context) (core.Totals, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, err := b.store.Load(ctx)
	if err != nil {
		return core.Totals{}, fmt.Errorf("load ledger: %w", err)
	}
	return l.Totals(), nil
}

// Snapshot returns a copy of the current ledger.
func (b *Book) Snapshot(ctx context.Context) (core.Ledger, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, err := b.store.Load(ctx)
	if err != nil {
		return core.Ledger{}, fmt.Errorf("load ledger: %w", err)
	}
	return l.Clone(), nil
}

func (b *Book) publish(ctx context.Context, ev core.EntryRecorded) {
	if b.publisher == nil {
		return
	}
	if err := b.publisher.PublishEntryRecorded(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry event",
			"kind", ev.Kind, "amount", ev.Amount, "error", err)
	}
}
