package backend

import (
	"fmt"

	"expensereport/internal/amqp"
	"expensereport/internal/config"
	"expensereport/internal/expenses/mongo"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Store:        StoreType(appConfig.ReportBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		PostgresDSN:  appConfig.PostgresDSN,

		Source:          SourceType(appConfig.ExpenseSource),
		ExpenseSeedFile: appConfig.ExpenseSeedFile,
		Mongo: mongo.Config{
			URI:        appConfig.MongoURI,
			Database:   appConfig.MongoDatabase,
			Collection: appConfig.MongoCollection,
		},

		AMQP: amqp.Config{
			URL:              appConfig.AMQPURL,
			Exchange:         appConfig.AMQPExchange,
			RequestQueue:     appConfig.AMQPQueue,
			EventsRoutingKey: appConfig.AMQPEventsRoutingKey,
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Store.IsValid() {
		return fmt.Errorf("invalid report store type: %s", c.Store)
	}
	if !c.Source.IsValid() {
		return fmt.Errorf("invalid expense source type: %s", c.Source)
	}

	switch c.Store {
	case SQLiteStore:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite store")
		}
	case PostgresStore:
		if c.PostgresDSN == "" {
			return fmt.Errorf("PostgreSQL DSN is required for postgres store")
		}
	}

	if c.Source == MongoSource && c.Mongo.URI == "" {
		return fmt.Errorf("MongoDB URI is required for mongo expense source")
	}

	return nil
}
