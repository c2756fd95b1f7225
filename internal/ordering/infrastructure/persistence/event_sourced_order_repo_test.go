package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenbasket/greenbasket/internal/ordering/domain"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/eventstore"
)

func buildOrder(t *testing.T) *domain.Order {
	t.Helper()
	qty, err := sharedDomain.NewQuantity(1.5, sharedDomain.UnitKilogram)
	require.NoError(t, err)
	price, err := sharedDomain.NewMoney(450, "EUR")
	require.NoError(t, err)
	item, err := domain.NewOrderItem(uuid.New(), "apples", qty, price)
	require.NoError(t, err)

	now := time.Now().UTC()
	slot := sharedDomain.NewDeliverySlot(now.AddDate(0, 0, 1), now)
	order, err := domain.PlaceOrder(uuid.New(), []domain.OrderItem{item}, price, slot, uuid.New(), nil)
	require.NoError(t, err)
	return order
}

func TestFindByIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	repo := NewEventSourcedOrderRepository(store, nil)

	order := buildOrder(t)
	require.NoError(t, order.Confirm(uuid.New()))
	require.NoError(t, order.AssignRider(uuid.New()))

	records, err := eventstore.EncodeAll(order.DomainEvents())
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, records))

	loaded, err := repo.FindByID(ctx, order.ID())
	require.NoError(t, err)

	assert.Equal(t, order.ID(), loaded.ID())
	assert.Equal(t, order.Version(), loaded.Version())
	assert.Equal(t, domain.OrderStatusAssigned, loaded.Status())
	assert.Equal(t, order.State(), loaded.State())
	assert.Empty(t, loaded.DomainEvents())
}

func TestFindByIDMissingOrder(t *testing.T) {
	repo := NewEventSourcedOrderRepository(eventstore.NewMemoryStore(), nil)

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, "ORDER.NOT_FOUND", sharedDomain.CodeOf(err))
}

func TestFindByIDUnknownEventType(t *testing.T) {
	ctx := context.Background()
	store := eventstore.NewMemoryStore()
	repo := NewEventSourcedOrderRepository(store, nil)

	id := uuid.New()
	require.NoError(t, store.Append(ctx, []eventstore.Record{{
		EventID:       uuid.New(),
		AggregateID:   id,
		AggregateType: domain.AggregateTypeOrder,
		EventType:     "ordering.order.retired",
		Version:       1,
		Payload:       []byte(`{}`),
		OccurredAt:    time.Now().UTC(),
	}}))

	_, err := repo.FindByID(ctx, id)
	require.Error(t, err)
	assert.Equal(t, "ORDER.DESERIALIZATION_FAILED", sharedDomain.CodeOf(err))
}
