package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"catat/internal/amqp"
	"catat/internal/config"
	"catat/internal/ledger/jsonfile"
	"catat/internal/ledger/memory"
	"catat/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	// withPublisher is false for tools that only read the ledger.
	withPublisher bool
}

// NewFactory creates a factory that also dials AMQP when it is configured.
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger, withPublisher: true}
}

// NewReadOnlyFactory creates a factory that never connects to AMQP.
func NewReadOnlyFactory(logger *slog.Logger) *DefaultFactory {
	f := NewFactory(logger)
	f.withPublisher = false
	return f
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg *config.Config) (*BackendResult, error) {
	var (
		res *BackendResult
		err error
	)
	switch cfg.DataBackend {
	case config.BackendSQLite:
		res, err = f.createSQLiteBackend(cfg)
	case config.BackendJSON:
		res = f.createJSONBackend(cfg)
	case config.BackendMemory:
		res = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}
	if err != nil {
		return nil, err
	}

	if f.withPublisher && cfg.AMQPURL != "" {
		f.attachPublisher(res, cfg)
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(cfg *config.Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)

	return &BackendResult{
		Type:      config.BackendSQLite,
		Ledger:    repo,
		Reminders: repo,
		Ready:     map[string]ReadinessCheck{"sqlite": repo.Ping},
		Cleanup:   repo.Close,
	}, nil
}

func (f *DefaultFactory) createJSONBackend(cfg *config.Config) *BackendResult {
	f.logger.Info("Initialized JSON file backend", "path", cfg.LedgerFile)
	return &BackendResult{
		Type:   config.BackendJSON,
		Ledger: jsonfile.New(cfg.LedgerFile),
	}
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	f.logger.Warn("Initialized memory backend, ledger will not survive restarts")
	return &BackendResult{
		Type:   config.BackendMemory,
		Ledger: memory.New(),
	}
}

// attachPublisher is best effort: recording must keep working without a broker.
func (f *DefaultFactory) attachPublisher(res *BackendResult, cfg *config.Config) {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)

	res.Publisher = client
	prev := res.Cleanup
	res.Cleanup = func() error {
		var errs []error
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close amqp: %w", err))
		}
		if prev != nil {
			if err := prev(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}
