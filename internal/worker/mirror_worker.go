// Package worker mirrors ledger entry events into a spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"catat/internal/amqp"
	"catat/internal/cache"
	"catat/internal/core"
	"catat/internal/metrics"
	"catat/internal/sheets"
)

const (
	seenSize = 10_000
	seenTTL  = 24 * time.Hour
)

// MirrorWorker appends each EntryRecorded message to a sheet. A message the
// broker redelivers after a lost ack is recognised and not appended twice.
type MirrorWorker struct {
	sheets sheets.EntryAppender
	seen   *cache.LRUCache[string]
}

func NewMirrorWorker(appender sheets.EntryAppender) *MirrorWorker {
	return &MirrorWorker{
		sheets: appender,
		seen:   cache.NewLRUCache[string](seenSize, seenTTL),
	}
}

// HandleEntryMessage has the amqp.EntryHandler signature.
func (w *MirrorWorker) HandleEntryMessage(ctx context.Context, msg *amqp.EntryRecordedMessage) error {
	return w.Mirror(ctx, msg.Event())
}

// Mirror appends e unless it was already mirrored.
func (w *MirrorWorker) Mirror(ctx context.Context, e core.EntryRecorded) error {
	key := entryKey(e)
	if ref, ok := w.seen.Get(key); ok {
		slog.InfoContext(ctx, "Entry already mirrored, skipping", "ref", ref)
		metrics.MirroredEntries.WithLabelValues("duplicate").Inc()
		return nil
	}

	ref, err := w.sheets.AppendEntry(ctx, e)
	if err != nil {
		metrics.MirroredEntries.WithLabelValues(metrics.OutcomeError).Inc()
		return fmt.Errorf("mirror entry: %w", err)
	}
	w.seen.Set(key, ref)
	metrics.MirroredEntries.WithLabelValues(metrics.OutcomeOK).Inc()

	slog.InfoContext(ctx, "Entry mirrored",
		"kind", e.Kind,
		"amount", e.Amount,
		"sender", e.Sender,
		"ref", ref)
	return nil
}

func entryKey(e core.EntryRecorded) string {
	return fmt.Sprintf("%s|%d|%d|%s", e.Kind, e.Amount, e.RecordedAt.UnixNano(), e.Sender)
}
