package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	catalogDomain "github.com/greenbasket/greenbasket/internal/catalog/domain"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/idempotency"
	"github.com/greenbasket/greenbasket/internal/subscriptions/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func subscriptionWithItems(t *testing.T, itemIDs ...uuid.UUID) *domain.Subscription {
	t.Helper()
	price, err := sharedDomain.NewMoney(1500, "EUR")
	require.NoError(t, err)

	items := make([]domain.SubscriptionItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		qty, err := sharedDomain.NewQuantity(2, sharedDomain.UnitKilogram)
		require.NoError(t, err)
		item, err := domain.NewSubscriptionItem(id, "box item", qty)
		require.NoError(t, err)
		items = append(items, item)
	}
	plan, err := domain.NewSubscriptionPlan("Veggie Box", "", price, items)
	require.NoError(t, err)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	slot := sharedDomain.NewDeliverySlot(now.AddDate(0, 0, 1), now)
	sub, err := domain.NewSubscription(uuid.New(), plan, domain.BillingCycleWeekly, slot, uuid.New(), now)
	require.NoError(t, err)
	sub.ClearDomainEvents()
	return sub
}

func produceWithStock(t *testing.T, id uuid.UUID, availableKg float64) *catalogDomain.ProduceItem {
	t.Helper()
	price, err := sharedDomain.NewMoney(300, "EUR")
	require.NoError(t, err)
	qty, err := sharedDomain.NewQuantity(availableKg, sharedDomain.UnitKilogram)
	require.NoError(t, err)
	return catalogDomain.RehydrateProduceItem(id, "box item", price, qty)
}

type generateOrderFixture struct {
	handler *GenerateOrderHandler
	subs    *mockSubscriptionRepository
	orders  *mockOrderRepository
	catalog *mockCatalogRepository
	outbox  *mockOutboxRepository
	keys    *idempotency.MemoryStore
}

func newGenerateOrderFixture() *generateOrderFixture {
	f := &generateOrderFixture{
		subs:    new(mockSubscriptionRepository),
		orders:  new(mockOrderRepository),
		catalog: new(mockCatalogRepository),
		outbox:  new(mockOutboxRepository),
		keys:    idempotency.NewMemoryStore(),
	}
	f.handler = NewGenerateOrderHandler(f.subs, f.orders, f.catalog, noopUnitOfWork{}, f.outbox, f.keys, testLogger())
	return f
}

func TestGenerateOrderHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps in-stock items and surfaces dropped ones", func(t *testing.T) {
		inStock := uuid.New()
		outOfStock := uuid.New()
		f := newGenerateOrderFixture()
		sub := subscriptionWithItems(t, inStock, outOfStock)

		f.subs.On("FindByID", ctx, sub.ID()).Return(sub, nil)
		f.catalog.On("FindByID", ctx, inStock).Return(produceWithStock(t, inStock, 10), nil)
		f.catalog.On("FindByID", ctx, outOfStock).Return(produceWithStock(t, outOfStock, 1), nil)
		f.orders.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.subs.On("Save", mock.Anything, sub).Return(nil)
		f.outbox.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)

		result, err := f.handler.Handle(ctx, GenerateOrderCommand{SubscriptionID: sub.ID()})

		require.NoError(t, err)
		require.Len(t, result.Order.Items(), 1)
		assert.Equal(t, inStock, result.Order.Items()[0].ProduceItemID())
		assert.Equal(t, []uuid.UUID{outOfStock}, result.DroppedItems)
		require.NotNil(t, result.Order.SubscriptionID())
		assert.Equal(t, sub.ID(), *result.Order.SubscriptionID())
		require.NotNil(t, sub.LastOrderID())
		assert.Equal(t, result.Order.ID(), *sub.LastOrderID())
	})

	t.Run("all items out of stock fails without creating an order", func(t *testing.T) {
		itemID := uuid.New()
		f := newGenerateOrderFixture()
		sub := subscriptionWithItems(t, itemID)

		f.subs.On("FindByID", ctx, sub.ID()).Return(sub, nil)
		f.catalog.On("FindByID", ctx, itemID).Return(produceWithStock(t, itemID, 0.5), nil)

		_, err := f.handler.Handle(ctx, GenerateOrderCommand{SubscriptionID: sub.ID()})

		require.Error(t, err)
		assert.Equal(t, "SUBSCRIPTION.NO_ITEMS", sharedDomain.CodeOf(err))
		f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("missing catalog entry counts as out of stock", func(t *testing.T) {
		present := uuid.New()
		missing := uuid.New()
		f := newGenerateOrderFixture()
		sub := subscriptionWithItems(t, present, missing)

		f.subs.On("FindByID", ctx, sub.ID()).Return(sub, nil)
		f.catalog.On("FindByID", ctx, present).Return(produceWithStock(t, present, 10), nil)
		f.catalog.On("FindByID", ctx, missing).Return(nil, nil)
		f.orders.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.subs.On("Save", mock.Anything, sub).Return(nil)
		f.outbox.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)

		result, err := f.handler.Handle(ctx, GenerateOrderCommand{SubscriptionID: sub.ID()})

		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{missing}, result.DroppedItems)
	})

	t.Run("requires an active subscription", func(t *testing.T) {
		itemID := uuid.New()
		f := newGenerateOrderFixture()
		sub := subscriptionWithItems(t, itemID)
		require.NoError(t, sub.Pause("", nil, time.Now().UTC()))

		f.subs.On("FindByID", ctx, sub.ID()).Return(sub, nil)

		_, err := f.handler.Handle(ctx, GenerateOrderCommand{SubscriptionID: sub.ID()})
		assert.Equal(t, "SUBSCRIPTION.NOT_ACTIVE", sharedDomain.CodeOf(err))
	})

	t.Run("second generation for the same period is rejected", func(t *testing.T) {
		itemID := uuid.New()
		f := newGenerateOrderFixture()
		sub := subscriptionWithItems(t, itemID)

		f.subs.On("FindByID", ctx, sub.ID()).Return(sub, nil)
		f.catalog.On("FindByID", ctx, itemID).Return(produceWithStock(t, itemID, 10), nil)
		f.orders.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.subs.On("Save", mock.Anything, sub).Return(nil)
		f.outbox.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)

		_, err := f.handler.Handle(ctx, GenerateOrderCommand{SubscriptionID: sub.ID()})
		require.NoError(t, err)

		_, err = f.handler.Handle(ctx, GenerateOrderCommand{SubscriptionID: sub.ID()})
		assert.Equal(t, "SUBSCRIPTION.ORDER_ALREADY_GENERATED", sharedDomain.CodeOf(err))
	})

	t.Run("failed transaction keeps the subscription events for retry", func(t *testing.T) {
		itemID := uuid.New()
		f := newGenerateOrderFixture()
		sub := subscriptionWithItems(t, itemID)

		f.subs.On("FindByID", ctx, sub.ID()).Return(sub, nil)
		f.catalog.On("FindByID", ctx, itemID).Return(produceWithStock(t, itemID, 10), nil)
		f.orders.On("Save", mock.Anything, mock.Anything).Return(nil)
		f.subs.On("Save", mock.Anything, sub).Return(nil)
		f.outbox.On("SaveBatch", mock.Anything, mock.Anything).Return(errors.New("outbox insert failed"))

		_, err := f.handler.Handle(ctx, GenerateOrderCommand{SubscriptionID: sub.ID()})
		require.Error(t, err)
		assert.NotEmpty(t, sub.DomainEvents())
	})

	t.Run("failed generation releases the claim for retry", func(t *testing.T) {
		itemID := uuid.New()
		f := newGenerateOrderFixture()
		sub := subscriptionWithItems(t, itemID)

		f.subs.On("FindByID", ctx, sub.ID()).Return(sub, nil)
		f.catalog.On("FindByID", ctx, itemID).Return(produceWithStock(t, itemID, 0), nil)

		_, err := f.handler.Handle(ctx, GenerateOrderCommand{SubscriptionID: sub.ID()})
		require.Error(t, err)
		assert.Equal(t, "SUBSCRIPTION.NO_ITEMS", sharedDomain.CodeOf(err))

		// The claim was released, so the retry reports the same error, not
		// a duplicate-generation conflict.
		_, err = f.handler.Handle(ctx, GenerateOrderCommand{SubscriptionID: sub.ID()})
		assert.Equal(t, "SUBSCRIPTION.NO_ITEMS", sharedDomain.CodeOf(err))
	})
}
