// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "catat"

// ─── Commands ───────────────────────────────────────────────────────────────

// CommandsExecuted counts executed chat commands by kind
// (income, expense, report, reminder, unrecognized, rejected).
var CommandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "commands",
	Name:      "executed_total",
	Help:      "Total chat commands executed, by command kind.",
}, []string{"kind"})

// CommandFailures counts commands that failed below the webhook boundary.
var CommandFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "commands",
	Name:      "failures_total",
	Help:      "Total chat commands that failed, by command kind.",
}, []string{"kind"})

// ─── Reminders ──────────────────────────────────────────────────────────────

var RemindersScheduled = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "reminders",
	Name:      "scheduled_total",
	Help:      "Total reminders registered with the scheduler.",
})

var RemindersFired = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "reminders",
	Name:      "fired_total",
	Help:      "Total reminders whose handler ran.",
})

var RemindersCancelled = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "reminders",
	Name:      "cancelled_total",
	Help:      "Total reminders cancelled before firing.",
})

// RemindersPending tracks armed timers in this process.
var RemindersPending = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "reminders",
	Name:      "pending",
	Help:      "Reminders currently waiting for their fire time.",
})

// ─── Notifier ───────────────────────────────────────────────────────────────

// NotifierRequests counts outbound provider calls by operation (send_text, place_call)
// and outcome (ok, error).
var NotifierRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "notifier",
	Name:      "requests_total",
	Help:      "Total outbound provider requests, by operation and outcome.",
}, []string{"operation", "outcome"})

// ─── Webhook ────────────────────────────────────────────────────────────────

var WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "webhook",
	Name:      "requests_total",
	Help:      "Total webhook requests, by method and status code.",
}, []string{"method", "status"})

// ─── Mirror ─────────────────────────────────────────────────────────────────

var MirroredEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "mirror",
	Name:      "entries_total",
	Help:      "Ledger entries processed by the sheet mirror worker, by outcome.",
}, []string{"outcome"})

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)
