package observability

import (
	"context"
	"log/slog"
	"time"
)

// Timer measures one operation and records its outcome to a logger and a
// metrics collector. Both are optional; a nil logger or metrics collector
// is simply skipped.
type Timer struct {
	operation string
	start     time.Time
	logger    *slog.Logger
	metrics   Metrics
	tags      []Tag
}

// StartTimer begins timing the named operation.
func StartTimer(operation string, logger *slog.Logger, metrics Metrics, tags ...Tag) *Timer {
	return &Timer{
		operation: operation,
		start:     time.Now(),
		logger:    logger,
		metrics:   metrics,
		tags:      tags,
	}
}

// Stop records the duration and, when err is non-nil, the failure. It
// returns the elapsed time.
func (t *Timer) Stop(ctx context.Context, err error) time.Duration {
	duration := time.Since(t.start)

	if t.logger != nil {
		attrs := []any{
			slog.String(OperationKey, t.operation),
			slog.Int64(DurationKey, duration.Milliseconds()),
		}
		if err != nil {
			attrs = append(attrs, slog.String(ErrorKey, err.Error()))
			t.logger.ErrorContext(ctx, "operation failed", attrs...)
		} else {
			t.logger.DebugContext(ctx, "operation completed", attrs...)
		}
	}

	if t.metrics != nil {
		tags := append(t.tags, T(OperationKey, t.operation))
		t.metrics.Timing(MetricOperationDuration, duration, tags...)
		t.metrics.Counter(MetricOperationTotal, 1, tags...)
		if err != nil {
			t.metrics.Counter(MetricOperationErrors, 1, tags...)
		}
	}

	return duration
}

// Elapsed returns the time since the timer started without recording
// anything.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// TimeOperation runs fn under a timer and records its outcome.
func TimeOperation(ctx context.Context, logger *slog.Logger, metrics Metrics, operation string, fn func() error) error {
	timer := StartTimer(operation, logger, metrics)
	err := fn()
	timer.Stop(ctx, err)
	return err
}
