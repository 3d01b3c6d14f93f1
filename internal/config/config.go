package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backends for the monthly report store
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Expense sources
const (
	SourceMemory = "memory"
	SourceMongo  = "mongo"
)

type Config struct {
	// Report store
	ReportBackend string
	SQLiteDBPath  string
	PostgresDSN   string

	// Expense source
	ExpenseSource   string
	ExpenseSeedFile string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// AMQP (optional)
	AMQPURL              string
	AMQPExchange         string
	AMQPQueue            string
	AMQPEventsRoutingKey string

	// Report service
	StoreTimeout       time.Duration
	RecentReportsLimit int
	ReportCacheSize    int
	ReportCacheTTL     time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		ReportBackend: getEnv("REPORT_BACKEND", BackendSQLite),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/monthly-reports.db"),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),

		ExpenseSource:   getEnv("EXPENSE_SOURCE", SourceMemory),
		ExpenseSeedFile: getEnv("EXPENSE_SEED_FILE", "./data/expenses.txt"),
		MongoURI:        getEnv("MONGO_URI", ""),
		MongoDatabase:   getEnv("MONGO_DATABASE", "expense_tracker"),
		MongoCollection: getEnv("MONGO_COLLECTION", "expenses"),

		AMQPURL:              getEnv("AMQP_URL", ""),
		AMQPExchange:         getEnv("AMQP_EXCHANGE", "reports"),
		AMQPQueue:            getEnv("AMQP_QUEUE", "report_requests"),
		AMQPEventsRoutingKey: getEnv("AMQP_EVENTS_ROUTING_KEY", "report_generated"),

		StoreTimeout:       getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		RecentReportsLimit: getEnvInt("RECENT_REPORTS_LIMIT", 3),
		ReportCacheSize:    getEnvInt("REPORT_CACHE_SIZE", 256),
		ReportCacheTTL:     getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// AMQPEnabled reports whether a broker is configured
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	validBackends := []string{BackendMemory, BackendSQLite, BackendPostgres}
	if !slices.Contains(validBackends, c.ReportBackend) {
		errors = append(errors, fmt.Sprintf("invalid report backend '%s': must be one of %v", c.ReportBackend, validBackends))
	}

	switch c.ReportBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
		} else if u, err := url.Parse(c.PostgresDSN); err == nil && u.Scheme != "" && u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid PostgreSQL DSN scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	}

	validSources := []string{SourceMemory, SourceMongo}
	if !slices.Contains(validSources, c.ExpenseSource) {
		errors = append(errors, fmt.Sprintf("invalid expense source '%s': must be one of %v", c.ExpenseSource, validSources))
	}
	if c.ExpenseSource == SourceMongo {
		if c.MongoURI == "" {
			errors = append(errors, "MONGO_URI is required when using mongo expense source")
		} else if u, err := url.Parse(c.MongoURI); err != nil {
			errors = append(errors, fmt.Sprintf("invalid MongoDB URI '%s': %v", c.MongoURI, err))
		} else if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
			errors = append(errors, fmt.Sprintf("invalid MongoDB URI scheme '%s': must be 'mongodb' or 'mongodb+srv'", u.Scheme))
		}
		if c.MongoDatabase == "" || c.MongoCollection == "" {
			errors = append(errors, "MongoDB database and collection names cannot be empty")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPEventsRoutingKey == "" {
			errors = append(errors, "AMQP events routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.StoreTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid store timeout %v: must be at least 100ms", c.StoreTimeout))
	} else if c.StoreTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid store timeout %v: must be at most 5 minutes", c.StoreTimeout))
	}

	if c.RecentReportsLimit < 1 || c.RecentReportsLimit > 120 {
		errors = append(errors, fmt.Sprintf("invalid recent reports limit %d: must be between 1 and 120", c.RecentReportsLimit))
	}

	if c.ReportCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid report cache size %d: must not be negative", c.ReportCacheSize))
	}
	if c.ReportCacheSize > 0 && c.ReportCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must be positive when the cache is enabled", c.ReportCacheTTL))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
