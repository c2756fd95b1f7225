package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/greenbasket/greenbasket/internal/app"
	"github.com/greenbasket/greenbasket/pkg/config"
	"github.com/greenbasket/greenbasket/pkg/observability"
)

// greenbasket-worker runs the outbox processor, the subscription renewal
// worker and the outbox cleanup loop as a standalone process, with a small
// HTTP health endpoint for orchestrators.
func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	logCfg := observability.DefaultLogConfig()
	if cfg.IsProduction() {
		logCfg = observability.ProductionLogConfig()
	}
	logCfg.Level = observability.LogLevel(cfg.LogLevel)
	logger := observability.NewLogger(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		return 1
	}
	defer container.Close()

	logger.Info("worker starting",
		"env", cfg.AppEnv,
		"outbox_enabled", cfg.OutboxProcessorEnabled,
		"renewal_interval", cfg.RenewalInterval.String(),
		"health_addr", cfg.WorkerHealthAddr,
	)

	if err := app.RunWorker(ctx, container); err != nil {
		logger.Error("worker stopped with error", "error", err)
		return 1
	}
	logger.Info("worker stopped")
	return 0
}
