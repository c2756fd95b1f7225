package persistence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/greenbasket/greenbasket/internal/catalog/domain"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
)

// BreakerRepository wraps a catalog repository with a circuit breaker so a
// degraded catalog store fails fast instead of stalling order placement.
type BreakerRepository struct {
	inner  domain.Repository
	single *gobreaker.CircuitBreaker[*domain.ProduceItem]
	multi  *gobreaker.CircuitBreaker[map[uuid.UUID]*domain.ProduceItem]
	logger *slog.Logger
}

func NewBreakerRepository(inner domain.Repository, logger *slog.Logger) *BreakerRepository {
	settings := gobreaker.Settings{
		Name:    "catalog",
		Timeout: 15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Caller errors (unknown id, bad input) say nothing about the
		// health of the store and must not trip the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var domainErr *sharedDomain.Error
			return errors.As(err, &domainErr) && domainErr.Kind != sharedDomain.KindInternal
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("catalog breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}
	return &BreakerRepository{
		inner:  inner,
		single: gobreaker.NewCircuitBreaker[*domain.ProduceItem](settings),
		multi:  gobreaker.NewCircuitBreaker[map[uuid.UUID]*domain.ProduceItem](settings),
		logger: logger,
	}
}

func (r *BreakerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ProduceItem, error) {
	return r.single.Execute(func() (*domain.ProduceItem, error) {
		return r.inner.FindByID(ctx, id)
	})
}

func (r *BreakerRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.ProduceItem, error) {
	return r.multi.Execute(func() (map[uuid.UUID]*domain.ProduceItem, error) {
		return r.inner.FindByIDs(ctx, ids)
	})
}
