package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"catat/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists the ledger and the reminder table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load implements ledger.Store.
func (r *SQLiteRepository) Load(ctx context.Context) (core.Ledger, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, amount, recorded_at FROM ledger_entries ORDER BY id`)
	if err != nil {
		return core.Ledger{}, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var l core.Ledger
	for rows.Next() {
		var (
			kind       string
			amount     int64
			recordedAt string
		)
		if err := rows.Scan(&kind, &amount, &recordedAt); err != nil {
			return core.Ledger{}, fmt.Errorf("%w: scan ledger entry: %v", core.ErrCorruptState, err)
		}
		at, err := parseTime(recordedAt)
		if err != nil {
			return core.Ledger{}, fmt.Errorf("%w: ledger entry time %q: %v", core.ErrCorruptState, recordedAt, err)
		}
		if err := l.Append(core.EntryKind(kind), core.LedgerEntry{Amount: amount, RecordedAt: at}); err != nil {
			return core.Ledger{}, fmt.Errorf("%w: ledger entry kind %q", core.ErrCorruptState, kind)
		}
	}
	if err := rows.Err(); err != nil {
		return core.Ledger{}, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return l, nil
}

// Save implements ledger.Store. The table is replaced in one transaction so
// readers never observe a partial ledger.
func (r *SQLiteRepository) Save(ctx context.Context, l core.Ledger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_entries`); err != nil {
		return fmt.Errorf("clear ledger entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ledger_entries (kind, amount, recorded_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	insert := func(kind core.EntryKind, entries []core.LedgerEntry) error {
		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, string(kind), e.Amount, formatTime(e.RecordedAt)); err != nil {
				return fmt.Errorf("insert %s entry: %w", kind, err)
			}
		}
		return nil
	}
	if err := insert(core.Income, l.Income); err != nil {
		return err
	}
	if err := insert(core.Expense, l.Expense); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger: %w", err)
	}
	return nil
}

// SaveReminder inserts a new reminder row.
func (r *SQLiteRepository) SaveReminder(ctx context.Context, rem core.Reminder) error {
	now := formatTime(r.now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reminders (id, sender, message, fire_at, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rem.ID, rem.Sender, rem.Message, formatTime(rem.FireAt), string(rem.State),
		formatTime(rem.CreatedAt), now)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}

	slog.InfoContext(ctx, "Reminder saved to SQLite",
		"id", rem.ID,
		"fire_at", rem.FireAt.Format(time.RFC3339))
	return nil
}

// TransitionReminder moves a reminder from one state to another. It reports
// false when the reminder is not in the from state, which makes concurrent
// fire and cancel attempts mutually exclusive.
func (r *SQLiteRepository) TransitionReminder(ctx context.Context, id string, from, to core.ReminderState) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET state = ?, updated_at = ? WHERE id = ? AND state = ?`,
		string(to), formatTime(r.now()), id, string(from))
	if err != nil {
		return false, fmt.Errorf("update reminder state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// PendingReminders returns all pending reminders ordered by fire time.
func (r *SQLiteRepository) PendingReminders(ctx context.Context) ([]core.Reminder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sender, message, fire_at, state, created_at
		 FROM reminders WHERE state = ? ORDER BY fire_at, id`, string(core.ReminderPending))
	if err != nil {
		return nil, fmt.Errorf("query pending reminders: %w", err)
	}
	defer rows.Close()

	var out []core.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reminders: %w", err)
	}
	return out, nil
}

// GetReminder returns one reminder by id.
func (r *SQLiteRepository) GetReminder(ctx context.Context, id string) (core.Reminder, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, sender, message, fire_at, state, created_at FROM reminders WHERE id = ?`, id)
	rem, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return core.Reminder{}, core.ErrReminderNotFound
	}
	return rem, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReminder(s scanner) (core.Reminder, error) {
	var (
		rem       core.Reminder
		state     string
		fireAt    string
		createdAt string
	)
	if err := s.Scan(&rem.ID, &rem.Sender, &rem.Message, &fireAt, &state, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return core.Reminder{}, err
		}
		return core.Reminder{}, fmt.Errorf("scan reminder: %w", err)
	}
	var err error
	if rem.FireAt, err = parseTime(fireAt); err != nil {
		return core.Reminder{}, fmt.Errorf("reminder %s fire_at: %w", rem.ID, err)
	}
	if rem.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Reminder{}, fmt.Errorf("reminder %s created_at: %w", rem.ID, err)
	}
	rem.State = core.ReminderState(state)
	return rem, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
