// Package scheduler fires one-shot reminders at an absolute wall-clock time.
//
// Each reminder goes pending -> fired or pending -> cancelled, and its handler
// runs at most once per process. With a Store the pending set survives
// restarts through Restore; without one it lives only in memory.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"catat/internal/core"
	"catat/internal/metrics"
)

// Handler is invoked on its own goroutine when a reminder fires.
type Handler func(ctx context.Context, r core.Reminder)

// Store persists reminders. TransitionReminder must report false when the
// reminder is not currently in the from state.
type Store interface {
	SaveReminder(ctx context.Context, r core.Reminder) error
	TransitionReminder(ctx context.Context, id string, from, to core.ReminderState) (bool, error)
	PendingReminders(ctx context.Context) ([]core.Reminder, error)
}

var ErrStopped = errors.New("scheduler stopped")

type job struct {
	reminder core.Reminder
	timer    *time.Timer
}

type Scheduler struct {
	handler Handler
	store   Store
	now     func() time.Time
	newID   func() string

	mu      sync.Mutex
	pending map[string]*job
	stopped bool
	wg      sync.WaitGroup

	// ctx is handed to handlers; it outlives any single request.
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithStore makes scheduling durable.
func WithStore(store Store) Option {
	return func(s *Scheduler) { s.store = store }
}

// WithClock overrides time.Now when computing timer delays.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithIDGenerator overrides uuid-based reminder IDs.
func WithIDGenerator(newID func() string) Option {
	return func(s *Scheduler) { s.newID = newID }
}

func New(handler Handler, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		handler: handler,
		now:     time.Now,
		newID:   uuid.NewString,
		pending: make(map[string]*job),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Durable reports whether reminders are persisted.
func (s *Scheduler) Durable() bool {
	return s.store != nil
}

// Schedule registers r and returns it with ID, State and CreatedAt filled in.
// A FireAt in the past fires immediately.
func (s *Scheduler) Schedule(ctx context.Context, r core.Reminder) (core.Reminder, error) {
	if r.ID == "" {
		r.ID = s.newID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	r.State = core.ReminderPending

	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return core.Reminder{}, ErrStopped
	}

	if s.store != nil {
		if err := s.store.SaveReminder(ctx, r); err != nil {
			return core.Reminder{}, fmt.Errorf("persist reminder: %w", err)
		}
	}

	if err := s.arm(r); err != nil {
		return core.Reminder{}, err
	}
	metrics.RemindersScheduled.Inc()

	slog.InfoContext(ctx, "Reminder scheduled",
		"id", r.ID,
		"fire_at", r.FireAt.Format(time.RFC3339),
		"delay", s.delay(r.FireAt).Round(time.Second),
		"durable", s.store != nil)

	return r, nil
}

// Restore re-arms every pending reminder held by the store. Reminders that
// came due while the process was down fire immediately.
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	reminders, err := s.store.PendingReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pending reminders: %w", err)
	}

	restored := 0
	for _, r := range reminders {
		s.mu.Lock()
		_, armed := s.pending[r.ID]
		s.mu.Unlock()
		if armed {
			continue
		}
		if err := s.arm(r); err != nil {
			return restored, err
		}
		restored++
	}

	slog.InfoContext(ctx, "Pending reminders restored", "count", restored)
	return restored, nil
}

// Cancel moves a pending reminder to cancelled. It returns
// core.ErrReminderNotFound when nothing pending has that id.
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	j, ok := s.pending[id]
	if ok {
		j.timer.Stop()
		delete(s.pending, id)
		metrics.RemindersPending.Set(float64(len(s.pending)))
	}
	s.mu.Unlock()

	if s.store != nil {
		moved, err := s.store.TransitionReminder(ctx, id, core.ReminderPending, core.ReminderCancelled)
		if err != nil {
			return fmt.Errorf("cancel reminder: %w", err)
		}
		ok = ok || moved
	}
	if !ok {
		return core.ErrReminderNotFound
	}

	metrics.RemindersCancelled.Inc()
	slog.InfoContext(ctx, "Reminder cancelled", "id", id)
	return nil
}

// Pending lists armed reminders ordered by fire time.
func (s *Scheduler) Pending() []core.Reminder {
	s.mu.Lock()
	out := make([]core.Reminder, 0, len(s.pending))
	for _, j := range s.pending {
		out = append(out, j.reminder)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, k int) bool {
		if out[i].FireAt.Equal(out[k].FireAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].FireAt.Before(out[k].FireAt)
	})
	return out
}

// Stop disarms all timers and waits for running handlers until ctx is done.
// Durable reminders stay pending in the store.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	for id, j := range s.pending {
		j.timer.Stop()
		delete(s.pending, id)
	}
	metrics.RemindersPending.Set(0)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	defer s.cancel()
	select {
	case <-done:
		slog.InfoContext(ctx, "Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) arm(r core.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}

	j := &job{reminder: r}
	s.pending[r.ID] = j
	// fire takes mu, so the timer cannot observe j before it is assigned.
	j.timer = time.AfterFunc(s.delay(r.FireAt), func() { s.fire(r.ID) })
	metrics.RemindersPending.Set(float64(len(s.pending)))
	return nil
}

func (s *Scheduler) delay(fireAt time.Time) time.Duration {
	d := fireAt.Sub(s.now())
	if d < 0 {
		return 0
	}
	return d
}

func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	j, ok := s.pending[id]
	if !ok || s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	metrics.RemindersPending.Set(float64(len(s.pending)))
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	r := j.reminder
	ctx := s.ctx

	if s.store != nil {
		moved, err := s.store.TransitionReminder(ctx, id, core.ReminderPending, core.ReminderFired)
		switch {
		case err != nil:
			// Still deliver: this process has already claimed the reminder.
			slog.ErrorContext(ctx, "Failed to mark reminder fired", "id", id, "error", err)
		case !moved:
			slog.InfoContext(ctx, "Reminder no longer pending, skipping", "id", id)
			return
		}
	}

	r.State = core.ReminderFired
	metrics.RemindersFired.Inc()
	slog.InfoContext(ctx, "Reminder firing",
		"id", id,
		"fire_at", r.FireAt.Format(time.RFC3339),
		"lateness", s.now().Sub(r.FireAt).Round(time.Millisecond))

	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "Reminder handler panicked", "id", id, "panic", p)
		}
	}()
	s.handler(ctx, r)
}
