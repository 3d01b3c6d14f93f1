package backend

import (
	"context"

	"expensereport/internal/amqp"
	"expensereport/internal/expenses/mongo"
	"expensereport/internal/ports"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the adapters the report service runs on
type BackendResult struct {
	Lookup ports.ExpenseLookup
	Store  ports.ReportStore

	// AMQP is nil when no broker is configured or it could not be reached
	AMQP *amqp.Client

	Cleanup CleanupFunc
}

// Publisher returns the report event publisher, or a nil interface when
// AMQP is disabled.
func (r *BackendResult) Publisher() ports.ReportPublisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Store StoreType
	// SQLite specific
	SQLiteDBPath string
	// PostgreSQL specific
	PostgresDSN string

	Source          SourceType
	ExpenseSeedFile string
	Mongo           mongo.Config

	// AMQP is optional; an empty URL disables it
	AMQP amqp.Config
}

// StoreType selects the monthly report store
type StoreType string

const (
	MemoryStore   StoreType = "memory"
	SQLiteStore   StoreType = "sqlite"
	PostgresStore StoreType = "postgres"
)

func (st StoreType) String() string {
	return string(st)
}

// IsValid returns true if the store type is valid
func (st StoreType) IsValid() bool {
	switch st {
	case MemoryStore, SQLiteStore, PostgresStore:
		return true
	default:
		return false
	}
}

// SourceType selects where expenses are read from
type SourceType string

const (
	MemorySource SourceType = "memory"
	MongoSource  SourceType = "mongo"
)

func (st SourceType) String() string {
	return string(st)
}

// IsValid returns true if the source type is valid
func (st SourceType) IsValid() bool {
	return st == MemorySource || st == MongoSource
}
