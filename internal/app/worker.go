package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/greenbasket/greenbasket/pkg/observability"
)

// RunWorker runs the background side of the system until ctx is cancelled:
// the outbox processor, the subscription renewal worker, periodic outbox
// cleanup and a health endpoint. All loops share one errgroup so a fatal
// error in any of them brings the worker down as a unit.
func RunWorker(ctx context.Context, c *Container) error {
	cfg := c.Config
	logger := c.Logger

	health := observability.NewHealthRegistry()
	if c.DB != nil {
		health.Register("database", observability.DatabaseHealthChecker(c.DB.Ping))
	}
	if c.RedisClient != nil {
		health.Register("redis", observability.RedisHealthChecker(func(ctx context.Context) error {
			return c.RedisClient.Ping(ctx).Err()
		}))
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.OutboxProcessorEnabled {
		if err := c.OutboxProcessor.Start(gctx); err != nil {
			return err
		}
		logger.Info("outbox processor started",
			"poll_interval", cfg.OutboxPollInterval,
			"batch_size", cfg.OutboxBatchSize,
		)
	} else {
		logger.Info("outbox processor disabled")
	}

	c.RenewalWorker.Start(gctx)
	logger.Info("renewal worker started",
		"interval", cfg.RenewalInterval,
		"batch_size", cfg.RenewalBatchSize,
	)

	if cfg.OutboxCleanupInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.OutboxCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					deleted, err := c.OutboxRepo.DeleteOld(gctx, cfg.OutboxRetentionDays)
					if err != nil {
						logger.Error("outbox cleanup failed", "error", err)
						continue
					}
					if deleted > 0 {
						logger.Info("outbox cleanup completed",
							"deleted", deleted,
							"retention_days", cfg.OutboxRetentionDays,
						)
					}
				}
			}
		})
	}

	if cfg.WorkerHealthAddr != "" {
		srv := newHealthServer(cfg.WorkerHealthAddr, c, health)
		g.Go(func() error {
			logger.Info("health server starting", "addr", cfg.WorkerHealthAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", "error", err)
			}
			return gctx.Err()
		})
	}

	// Hold the group open until the caller cancels, even when cleanup and
	// the health server are disabled.
	g.Go(func() error {
		<-gctx.Done()
		return gctx.Err()
	})

	err := g.Wait()

	logger.Info("shutting down worker")
	c.OutboxProcessor.Stop()
	c.RenewalWorker.Stop()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newHealthServer(addr string, c *Container, health *observability.HealthRegistry) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		overall := health.GetOverallHealth(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if overall.Status == observability.HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		payload, err := overall.ToJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(payload)
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		payload, err := json.Marshal(c.Metrics.Snapshot())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(payload)
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !c.OutboxProcessor.IsRunning() && c.Config.OutboxProcessorEnabled {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not_ready"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
