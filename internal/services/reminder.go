package services

import (
	"context"
	"log/slog"

	"catat/internal/core"
)

// Messenger sends a chat message.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
}

// Caller places a voice call to an E.164 number.
type Caller interface {
	PlaceCall(ctx context.Context, to string) error
}

// ReminderDelivery is installed as the scheduler handler: it texts the
// reminder to its sender and then rings them.
type ReminderDelivery struct {
	messenger Messenger
	caller    Caller
}

// NewReminderDelivery builds the handler. A nil caller disables the call.
func NewReminderDelivery(messenger Messenger, caller Caller) *ReminderDelivery {
	return &ReminderDelivery{messenger: messenger, caller: caller}
}

// Deliver is attempted once. Failures are logged, never retried, and a failed
// text does not suppress the call.
func (d *ReminderDelivery) Deliver(ctx context.Context, r core.Reminder) {
	if err := d.messenger.SendText(ctx, r.Sender, "⏰ Pengingat: "+r.Message); err != nil {
		slog.ErrorContext(ctx, "Failed to send reminder text", "id", r.ID, "sender", r.Sender, "error", err)
	}

	if d.caller == nil {
		slog.WarnContext(ctx, "Voice calls not configured, skipping reminder call", "id", r.ID)
		return
	}
	if err := d.caller.PlaceCall(ctx, "+"+r.Sender); err != nil {
		slog.ErrorContext(ctx, "Failed to place reminder call", "id", r.ID, "sender", r.Sender, "error", err)
		return
	}
	slog.InfoContext(ctx, "Reminder delivered", "id", r.ID, "sender", r.Sender)
}
