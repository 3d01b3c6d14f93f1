// Package cli provides common initialization shared by cmd/report-worker
// and cmd/reportctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expensereport/internal/backend"
	"expensereport/internal/cache"
	"expensereport/internal/config"
	"expensereport/internal/core"
	applog "expensereport/internal/log"
	"expensereport/internal/services"
)

// SetupLogger initializes structured logging at the given level and installs
// it as the default logger. Unknown levels fall back to info.
func SetupLogger(level, component string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Component = component
	if lvl, err := applog.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}

	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.ErrorContext(context.Background(), "Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend opens the report store, expense source and optional broker.
// Exits the process on failure.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Slog()).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize backend", applog.FieldError, err,
			"store", backendCfg.Store,
			"source", backendCfg.Source)
		os.Exit(1)
	}
	return result
}

// NewReportService wires the report service and its recent-reports cache.
// The returned janitor is nil when caching is disabled; otherwise the caller
// owns starting and stopping it.
func NewReportService(cfg *config.Config, result *backend.BackendResult, logger *applog.Logger) (*services.ReportService, *cache.Janitor) {
	var (
		recent  *services.RecentReportsCache
		janitor *cache.Janitor
	)
	if cfg.ReportCacheSize > 0 {
		recent = cache.NewLRU[string, []core.MonthlyReport](cfg.ReportCacheSize, cfg.ReportCacheTTL)
		janitor = cache.NewJanitor(logger.WithComponent(applog.ComponentCache).Slog())
		janitor.Register(recent)
	}

	svc := services.NewReportService(result.Lookup, result.Store, result.Publisher(), recent, services.ReportServiceConfig{
		StoreTimeout: cfg.StoreTimeout,
		RecentLimit:  cfg.RecentReportsLimit,
	})
	return svc, janitor
}

// GracefulShutdown returns a context cancelled on SIGINT, SIGTERM or when
// parent is done. Afterwards cleanup runs with at most timeout to finish,
// and the returned channel closes.
func GracefulShutdown(parent context.Context, logger *applog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.InfoContext(ctx, "Shutdown signal received",
				applog.FieldOperation, applog.OpShutdown,
				"signal", sig.String())
		case <-ctx.Done():
		}
		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.InfoContext(context.Background(), "Shutdown complete", applog.FieldOperation, applog.OpShutdown)
		case <-time.After(timeout):
			logger.WarnContext(context.Background(), "Shutdown timeout reached", applog.FieldOperation, applog.OpShutdown)
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
