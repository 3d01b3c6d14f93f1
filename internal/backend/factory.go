package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expensereport/internal/amqp"
	expmemory "expensereport/internal/expenses/memory"
	"expensereport/internal/expenses/mongo"
	"expensereport/internal/ports"
	"expensereport/internal/storage"
	"expensereport/internal/storage/memory"
	"expensereport/internal/storage/postgres"
)

const disconnectTimeout = 5 * time.Second

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend. On error every resource
// opened so far is released.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (_ *BackendResult, err error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var closers []CleanupFunc
	defer func() {
		if err != nil {
			_ = runCleanup(closers)
		}
	}()

	store, closeStore, err := f.createStore(ctx, config)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	lookup, closeLookup, err := f.createSource(ctx, config)
	if err != nil {
		return nil, err
	}
	if closeLookup != nil {
		closers = append(closers, closeLookup)
	}

	// AMQP is optional, so a broker outage only disables events
	var amqpClient *amqp.Client
	if config.AMQP.URL != "" {
		amqpClient, err = amqp.NewClient(config.AMQP)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			amqpClient, err = nil, nil
		} else {
			closers = append(closers, amqpClient.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQP.Exchange,
				"queue", config.AMQP.RequestQueue)
		}
	}

	return &BackendResult{
		Lookup:  lookup,
		Store:   store,
		AMQP:    amqpClient,
		Cleanup: func() error { return runCleanup(closers) },
	}, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config) (ports.ReportStore, CleanupFunc, error) {
	switch config.Store {
	case SQLiteStore:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite report store", "db_path", config.SQLiteDBPath)
		return repo, repo.Close, nil

	case PostgresStore:
		repo, err := postgres.NewRepository(ctx, config.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}
		f.logger.Info("Initialized PostgreSQL report store")
		return repo, repo.Close, nil

	case MemoryStore:
		f.logger.Info("Initialized memory report store")
		return memory.NewReportStore(), nil, nil
	}
	return nil, nil, fmt.Errorf("unsupported report store type: %s", config.Store)
}

func (f *DefaultFactory) createSource(ctx context.Context, config Config) (ports.ExpenseLookup, CleanupFunc, error) {
	switch config.Source {
	case MongoSource:
		lookup, err := mongo.Connect(ctx, config.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		return lookup, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
			defer cancel()
			return lookup.Close(ctx)
		}, nil

	case MemorySource:
		store, err := expmemory.NewFromFile(config.ExpenseSeedFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load expense seed file: %w", err)
		}
		f.logger.Info("Initialized memory expense source", "seed_file", config.ExpenseSeedFile)
		return store, nil, nil
	}
	return nil, nil, fmt.Errorf("unsupported expense source type: %s", config.Source)
}

// runCleanup closes resources in reverse order of creation
func runCleanup(closers []CleanupFunc) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
