package ledger

import (
	"context"

	"catat/internal/core"
)

// Ports for ledger persistence and change notification.
type (
	// Store persists the whole ledger. Load returns core.ErrCorruptState
	// (wrapped) when the persisted form cannot be decoded.
	Store interface {
		Load(ctx context.Context) (core.Ledger, error)
		Save(ctx context.Context, l core.Ledger) error
	}

	// EventPublisher is told about every entry after it has been saved.
	EventPublisher interface {
		PublishEntryRecorded(ctx context.Context, ev core.EntryRecorded) error
	}
)
