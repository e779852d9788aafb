package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"catat/internal/core"
	"catat/internal/metrics"
)

// HelpText answers any message that is not a known command.
const HelpText = "👋 Hai! Perintah yang bisa dipakai:\n\n" +
	"- catat pemasukan <jumlah>\n" +
	"- catat pengeluaran <jumlah>\n" +
	"- laporan\n" +
	"- ingatkan <HH:MM> <pesan>"

// LedgerBook is the subset of ledger.Book the executor needs.
type LedgerBook interface {
	Record(ctx context.Context, kind core.EntryKind, amount int64, sender string) (core.LedgerEntry, error)
	Totals(ctx context.Context) (core.Totals, error)
}

// ReminderScheduler registers one-shot reminders.
type ReminderScheduler interface {
	Schedule(ctx context.Context, r core.Reminder) (core.Reminder, error)
}

// Executor turns parsed commands into state changes and reply text.
type Executor struct {
	book      LedgerBook
	scheduler ReminderScheduler
	loc       *time.Location
	now       func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLocation sets the zone reminder times are interpreted in.
func WithLocation(loc *time.Location) ExecutorOption {
	return func(e *Executor) { e.loc = loc }
}

func WithExecutorClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

func NewExecutor(book LedgerBook, scheduler ReminderScheduler, opts ...ExecutorOption) *Executor {
	e := &Executor{
		book:      book,
		scheduler: scheduler,
		loc:       time.Local,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs cmd on behalf of sender and returns the reply to send back.
// An error means no reply should be sent.
func (e *Executor) Execute(ctx context.Context, cmd core.Command, sender string) (string, error) {
	kind := core.CommandName(cmd)
	reply, err := e.execute(ctx, cmd, sender)
	if err != nil {
		metrics.CommandFailures.WithLabelValues(kind).Inc()
		return "", err
	}
	metrics.CommandsExecuted.WithLabelValues(kind).Inc()
	return reply, nil
}

func (e *Executor) execute(ctx context.Context, cmd core.Command, sender string) (string, error) {
	switch c := cmd.(type) {
	case core.RecordIncome:
		if _, err := e.book.Record(ctx, core.Income, c.Amount, sender); err != nil {
			return "", fmt.Errorf("record income: %w", err)
		}
		return fmt.Sprintf("✅ Pemasukan %d dicatat.", c.Amount), nil

	case core.RecordExpense:
		if _, err := e.book.Record(ctx, core.Expense, c.Amount, sender); err != nil {
			return "", fmt.Errorf("record expense: %w", err)
		}
		return fmt.Sprintf("✅ Pengeluaran %d dicatat.", c.Amount), nil

	case core.Report:
		t, err := e.book.Totals(ctx)
		if err != nil {
			return "", fmt.Errorf("report: %w", err)
		}
		return fmt.Sprintf("📊 Laporan Keuangan:\nPemasukan: %d\nPengeluaran: %d\nSaldo: %d",
			t.Income, t.Expense, t.Balance), nil

	case core.ScheduleReminder:
		// Same calendar day, no rollover: a time already passed fires at once.
		fireAt := c.FireAt.On(e.now().In(e.loc))
		r, err := e.scheduler.Schedule(ctx, core.Reminder{
			FireAt:  fireAt,
			Sender:  sender,
			Message: c.Message,
		})
		if err != nil {
			return "", fmt.Errorf("schedule reminder: %w", err)
		}
		slog.InfoContext(ctx, "Reminder registered", "id", r.ID, "sender", sender, "fire_at", fireAt.Format(time.RFC3339))
		return fmt.Sprintf("✅ Pengingat diset jam %s untuk: %s", c.RawTime, c.Message), nil

	case core.Rejected:
		return rejectionReply(c), nil

	case core.Unrecognized:
		return HelpText, nil
	}

	return "", fmt.Errorf("unsupported command %T", cmd)
}

func rejectionReply(c core.Rejected) string {
	switch {
	case errors.Is(c.Reason, core.ErrInvalidAmount) && c.Arg == "":
		return "❌ Jumlah belum diisi. Contoh: catat pemasukan 50000"
	case errors.Is(c.Reason, core.ErrInvalidAmount):
		return fmt.Sprintf("❌ Jumlah tidak valid: %q. Contoh: catat pemasukan 50000", c.Arg)
	case errors.Is(c.Reason, core.ErrInvalidTime) && c.Arg == "":
		return "❌ Waktu belum diisi. Gunakan HH:MM, contoh: ingatkan 09:15 rapat tim"
	case errors.Is(c.Reason, core.ErrInvalidTime):
		return fmt.Sprintf("❌ Format waktu tidak valid: %q. Gunakan HH:MM, contoh: ingatkan 09:15 rapat tim", c.Arg)
	}
	return "❌ Perintah tidak valid.\n\n" + HelpText
}
