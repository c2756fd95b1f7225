package workers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogDomain "github.com/greenbasket/greenbasket/internal/catalog/domain"
	catalogPersistence "github.com/greenbasket/greenbasket/internal/catalog/infrastructure/persistence"
	identityDomain "github.com/greenbasket/greenbasket/internal/identity/domain"
	identityPersistence "github.com/greenbasket/greenbasket/internal/identity/infrastructure/persistence"
	orderingPersistence "github.com/greenbasket/greenbasket/internal/ordering/infrastructure/persistence"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/eventstore"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/idempotency"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/greenbasket/greenbasket/internal/shared/infrastructure/persistence"
	"github.com/greenbasket/greenbasket/internal/subscriptions/application/commands"
	"github.com/greenbasket/greenbasket/internal/subscriptions/domain"
	subscriptionsPersistence "github.com/greenbasket/greenbasket/internal/subscriptions/infrastructure/persistence"
	"github.com/greenbasket/greenbasket/pkg/observability"
)

// dueListRepo serves a fixed due list instead of the read-model scan, which
// needs postgres. Everything else goes to the real event-sourced repository.
type dueListRepo struct {
	domain.Repository
	due []domain.SubscriptionSummary
}

func (r *dueListRepo) FindByNextBillingDate(ctx context.Context, date time.Time) ([]domain.SubscriptionSummary, error) {
	return r.due, nil
}

func newWorkerFixture(t *testing.T) (*RenewalWorker, *dueListRepo, domain.Repository, *observability.InMemoryMetrics) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := eventstore.NewMemoryStore()
	subRepo := subscriptionsPersistence.NewEventSourcedSubscriptionRepository(store, nil)
	orderRepo := orderingPersistence.NewEventSourcedOrderRepository(store, nil)

	price, err := sharedDomain.NewMoney(299, "EUR")
	require.NoError(t, err)
	qty, err := sharedDomain.NewQuantity(50, sharedDomain.UnitBundle)
	require.NoError(t, err)
	produce := catalogDomain.RehydrateProduceItem(uuid.New(), "Rainbow Chard", price, qty)
	catalog := catalogPersistence.NewMemoryProduceRepository(produce)

	user := identityDomain.RehydrateUser(uuid.New(), "worker@test.local", "Worker Test", []identityDomain.Address{{
		ID:         uuid.New(),
		Line1:      "1 Test Lane",
		City:       "Testville",
		PostalCode: "11111",
	}})
	users := identityPersistence.NewMemoryUserRepository(user)

	uow := sharedPersistence.NewPassthroughUnitOfWork()
	outboxRepo := outbox.NewMemoryRepository()

	create := commands.NewCreateSubscriptionHandler(users, subRepo, uow, outboxRepo, logger)
	generate := commands.NewGenerateOrderHandler(
		subRepo, orderRepo, catalog, uow, outboxRepo, idempotency.NewMemoryStore(), logger)
	renew := commands.NewProcessRenewalHandler(subRepo, uow, outboxRepo, logger)

	wrapped := &dueListRepo{Repository: subRepo}
	metrics := observability.NewInMemoryMetrics()
	worker := NewRenewalWorker(wrapped, generate, renew, RenewalWorkerConfig{
		Interval:  time.Hour,
		BatchSize: 10,
	}, logger, metrics)

	createCmd := commands.CreateSubscriptionCommand{
		UserID:      user.ID(),
		PlanName:    "Weekly Greens",
		PriceAmount: 1999,
		Currency:    "EUR",
		Items: []commands.CreateSubscriptionItem{{
			ProduceItemID: produce.ID(),
			Name:          produce.Name(),
			Quantity:      1,
			Unit:          string(sharedDomain.UnitBundle),
		}},
		BillingCycle:  "WEEKLY",
		AddressID:     user.Addresses()[0].ID,
		PreferredDate: time.Now().UTC().Add(48 * time.Hour),
	}
	sub, err := create.Handle(context.Background(), createCmd)
	require.NoError(t, err)

	wrapped.due = []domain.SubscriptionSummary{{ID: sub.ID()}}
	return worker, wrapped, subRepo, metrics
}

func TestRenewalWorker_RunOnceRenewsDueSubscription(t *testing.T) {
	worker, wrapped, subRepo, _ := newWorkerFixture(t)

	before, err := subRepo.FindByID(context.Background(), wrapped.due[0].ID)
	require.NoError(t, err)

	worker.RunOnce(context.Background())

	after, err := subRepo.FindByID(context.Background(), wrapped.due[0].ID)
	require.NoError(t, err)

	assert.True(t, after.PeriodStart().After(before.PeriodStart()), "period should roll forward")
	assert.True(t, after.NextBillingDate().After(before.NextBillingDate()))
	require.NotNil(t, after.LastOrderID(), "an order should be generated for the period")
}

func TestRenewalWorker_RunOnceIsIdempotentWithinPeriod(t *testing.T) {
	worker, wrapped, subRepo, _ := newWorkerFixture(t)

	worker.RunOnce(context.Background())
	first, err := subRepo.FindByID(context.Background(), wrapped.due[0].ID)
	require.NoError(t, err)

	worker.RunOnce(context.Background())
	second, err := subRepo.FindByID(context.Background(), wrapped.due[0].ID)
	require.NoError(t, err)

	// Each run rolls the period once; the order generated for a period is
	// never duplicated.
	assert.True(t, second.PeriodStart().After(first.PeriodStart()))
	assert.NotEqual(t, first.PeriodStart(), second.PeriodStart())
}

func TestRenewalWorker_RecordsScanMetrics(t *testing.T) {
	worker, _, _, metrics := newWorkerFixture(t)

	worker.RunOnce(context.Background())

	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricRenewalScans))
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricSubscriptionsRenewed))
	assert.Equal(t, int64(0), metrics.GetCounter(observability.MetricRenewalFailures))
}

func TestRenewalWorker_SkipsCancelledSubscription(t *testing.T) {
	worker, wrapped, subRepo, _ := newWorkerFixture(t)

	sub, err := subRepo.FindByID(context.Background(), wrapped.due[0].ID)
	require.NoError(t, err)
	require.NoError(t, sub.Cancel("moving away"))
	require.NoError(t, subRepo.Save(context.Background(), sub))

	worker.RunOnce(context.Background())

	after, err := subRepo.FindByID(context.Background(), wrapped.due[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusCancelled, after.Status())
	assert.Nil(t, after.LastOrderID())
}

func TestRenewalWorker_StartAndStop(t *testing.T) {
	worker, _, _, _ := newWorkerFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)
	worker.Start(ctx) // second start is a no-op
	worker.Stop()
	worker.Stop() // second stop is a no-op
}
