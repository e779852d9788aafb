// Package backend assembles the ledger store, the optional reminder store and
// the optional event publisher selected by configuration.
package backend

import (
	"context"

	"catat/internal/config"
	"catat/internal/ledger"
	"catat/internal/scheduler"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// ReadinessCheck reports whether a backend dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// BackendResult is everything the binaries need from the storage layer.
type BackendResult struct {
	Type   string
	Ledger ledger.Store
	// Reminders is nil unless the backend can persist reminders.
	Reminders scheduler.Store
	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher ledger.EventPublisher
	Ready     map[string]ReadinessCheck
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, cfg *config.Config) (*BackendResult, error)
}
