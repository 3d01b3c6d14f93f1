package main

import (
	"context"
	"errors"
	"os"
	"time"

	"expensereport/internal/cli"
	applog "expensereport/internal/log"
	"expensereport/internal/worker"
)

const (
	shutdownTimeout = 10 * time.Second
	cacheSweepEvery = time.Minute
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.InfoContext(context.Background(), "Starting report-worker", applog.FieldOperation, applog.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.ErrorContext(context.Background(), "AMQP_URL is required for report-worker")
		os.Exit(1)
	}

	parent, stop := context.WithCancel(context.Background())
	defer stop()

	result := cli.InitBackend(parent, logger, cfg)
	if result.AMQP == nil {
		logger.ErrorContext(parent, "AMQP broker unavailable, cannot consume report requests")
		_ = result.Cleanup()
		os.Exit(1)
	}

	svc, janitor := cli.NewReportService(cfg, result, logger)
	if janitor != nil {
		janitor.Start(cacheSweepEvery)
	}

	ctx, done := cli.GracefulShutdown(parent, logger, shutdownTimeout, func() {
		if janitor != nil {
			janitor.Stop()
		}
		if err := result.Cleanup(); err != nil {
			logger.ErrorContext(context.Background(), "Cleanup failed", applog.FieldError, err)
		}
	})

	reportWorker := worker.NewReportWorker(svc)

	go func() {
		err := result.AMQP.ConsumeReportRequests(ctx, reportWorker.HandleReportRequest)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorContext(ctx, "Message consumption failed", applog.FieldError, err)
		}
		stop()
	}()

	logger.InfoContext(ctx, "report-worker running",
		"queue", cfg.AMQPQueue,
		"store", cfg.ReportBackend,
		"source", cfg.ExpenseSource)

	cli.WaitForShutdown(ctx, done)
}
