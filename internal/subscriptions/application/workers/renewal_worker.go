package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/subscriptions/application/commands"
	"github.com/greenbasket/greenbasket/internal/subscriptions/domain"
	"github.com/greenbasket/greenbasket/pkg/observability"
)

// RenewalWorkerConfig controls the due-subscription scan.
type RenewalWorkerConfig struct {
	Interval  time.Duration
	BatchSize int
}

func DefaultRenewalWorkerConfig() RenewalWorkerConfig {
	return RenewalWorkerConfig{
		Interval:  time.Hour,
		BatchSize: 100,
	}
}

// RenewalWorker periodically finds subscriptions whose next billing date
// has arrived, generates the period's order and rolls the period forward.
// Each subscription is handled independently; one failure never blocks the
// rest of the batch.
type RenewalWorker struct {
	subs     domain.Repository
	generate *commands.GenerateOrderHandler
	renew    *commands.ProcessRenewalHandler
	config   RenewalWorkerConfig
	logger   *slog.Logger
	metrics  observability.Metrics

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewRenewalWorker(
	subs domain.Repository,
	generate *commands.GenerateOrderHandler,
	renew *commands.ProcessRenewalHandler,
	config RenewalWorkerConfig,
	logger *slog.Logger,
	metrics observability.Metrics,
) *RenewalWorker {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &RenewalWorker{
		subs:     subs,
		generate: generate,
		renew:    renew,
		config:   config,
		logger:   logger,
		metrics:  metrics,
	}
}

// Start launches the scan loop until the context is cancelled or Stop is
// called.
func (w *RenewalWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.run(runCtx)
	w.logger.Info("renewal worker started", slog.Duration("interval", w.config.Interval))
}

// Stop halts the loop and waits for the in-flight scan to finish.
func (w *RenewalWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	done := w.done
	w.running = false
	w.mu.Unlock()

	cancel()
	<-done
	w.logger.Info("renewal worker stopped")
}

func (w *RenewalWorker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce processes one batch of due subscriptions. Exposed for the CLI so
// an operator can trigger a scan by hand. Each scan runs under its own
// correlation ID so the log lines of one pass can be tied together.
func (w *RenewalWorker) RunOnce(ctx context.Context) {
	ctx = observability.WithCorrelationID(ctx, "")
	w.metrics.Counter(observability.MetricRenewalScans, 1)

	due, err := w.subs.FindByNextBillingDate(ctx, time.Now().UTC())
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to scan due subscriptions", slog.String("error", err.Error()))
		return
	}
	if len(due) == 0 {
		return
	}
	if len(due) > w.config.BatchSize {
		due = due[:w.config.BatchSize]
	}

	for _, summary := range due {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, summary)
	}
}

func (w *RenewalWorker) process(ctx context.Context, summary domain.SubscriptionSummary) {
	logger := w.logger.With(slog.String("subscription_id", summary.ID.String()))

	_, err := w.generate.Handle(ctx, commands.GenerateOrderCommand{SubscriptionID: summary.ID})
	switch {
	case err == nil:
	case sharedDomain.CodeOf(err) == "SUBSCRIPTION.ORDER_ALREADY_GENERATED":
		// A previous run generated the order but may have failed before
		// renewing; fall through to the renewal.
		logger.DebugContext(ctx, "order for period already generated")
	case sharedDomain.CodeOf(err) == "SUBSCRIPTION.NO_ITEMS":
		logger.WarnContext(ctx, "skipping order generation, no items in stock")
	default:
		w.metrics.Counter(observability.MetricRenewalFailures, 1)
		logger.ErrorContext(ctx, "failed to generate order", slog.String("error", err.Error()))
		return
	}

	if err := w.renew.Handle(ctx, commands.ProcessRenewalCommand{SubscriptionID: summary.ID}); err != nil {
		w.metrics.Counter(observability.MetricRenewalFailures, 1)
		logger.ErrorContext(ctx, "failed to renew subscription", slog.String("error", err.Error()))
		return
	}
	w.metrics.Counter(observability.MetricSubscriptionsRenewed, 1)
	logger.InfoContext(ctx, "subscription renewed")
}
