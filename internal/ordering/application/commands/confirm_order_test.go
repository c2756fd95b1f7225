package commands

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/greenbasket/greenbasket/internal/ordering/domain"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
)

func storedOrder(t *testing.T) *domain.Order {
	t.Helper()
	qty, err := sharedDomain.NewQuantity(1, sharedDomain.UnitKilogram)
	require.NoError(t, err)
	price, err := sharedDomain.NewMoney(300, "EUR")
	require.NoError(t, err)
	item, err := domain.NewOrderItem(uuid.New(), "tomatoes", qty, price)
	require.NoError(t, err)

	now := time.Now().UTC()
	slot := sharedDomain.NewDeliverySlot(now.AddDate(0, 0, 1), now)
	order, err := domain.PlaceOrder(uuid.New(), []domain.OrderItem{item}, price, slot, uuid.New(), nil)
	require.NoError(t, err)
	order.ClearDomainEvents()
	return order
}

func TestConfirmOrderHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("confirms pending order", func(t *testing.T) {
		orders := new(mockOrderRepository)
		outboxRepo := new(mockOutboxRepository)
		handler := NewConfirmOrderHandler(orders, noopUnitOfWork{}, outboxRepo, testLogger())

		order := storedOrder(t)
		orders.On("FindByID", ctx, order.ID()).Return(order, nil)
		orders.On("Save", mock.Anything, order).Return(nil)
		outboxRepo.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)

		err := handler.Handle(ctx, ConfirmOrderCommand{OrderID: order.ID(), ConfirmedBy: uuid.New()})

		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusConfirmed, order.Status())
		orders.AssertExpectations(t)
	})

	t.Run("missing order surfaces not found", func(t *testing.T) {
		orders := new(mockOrderRepository)
		handler := NewConfirmOrderHandler(orders, noopUnitOfWork{}, new(mockOutboxRepository), testLogger())

		id := uuid.New()
		orders.On("FindByID", ctx, id).Return(nil, domain.ErrOrderNotFound)

		err := handler.Handle(ctx, ConfirmOrderCommand{OrderID: id, ConfirmedBy: uuid.New()})
		assert.Equal(t, "ORDER.NOT_FOUND", sharedDomain.CodeOf(err))
	})

	t.Run("already confirmed order is rejected without saving", func(t *testing.T) {
		orders := new(mockOrderRepository)
		handler := NewConfirmOrderHandler(orders, noopUnitOfWork{}, new(mockOutboxRepository), testLogger())

		order := storedOrder(t)
		require.NoError(t, order.Confirm(uuid.New()))
		order.ClearDomainEvents()
		orders.On("FindByID", ctx, order.ID()).Return(order, nil)

		err := handler.Handle(ctx, ConfirmOrderCommand{OrderID: order.ID(), ConfirmedBy: uuid.New()})

		assert.Equal(t, "ORDER.INVALID_TRANSITION", sharedDomain.CodeOf(err))
		orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}
