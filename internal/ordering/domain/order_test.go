package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
)

func testOrderItem(t *testing.T, amount int64) OrderItem {
	t.Helper()
	qty, err := sharedDomain.NewQuantity(2, sharedDomain.UnitKilogram)
	require.NoError(t, err)
	price, err := sharedDomain.NewMoney(amount, "EUR")
	require.NoError(t, err)
	item, err := NewOrderItem(uuid.New(), "carrots", qty, price)
	require.NoError(t, err)
	return item
}

func testMoney(t *testing.T, amount int64) sharedDomain.Money {
	t.Helper()
	m, err := sharedDomain.NewMoney(amount, "EUR")
	require.NoError(t, err)
	return m
}

func testSlot() sharedDomain.DeliverySlot {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return sharedDomain.NewDeliverySlot(now.AddDate(0, 0, 1), now)
}

func placedOrder(t *testing.T) *Order {
	t.Helper()
	items := []OrderItem{testOrderItem(t, 500), testOrderItem(t, 300)}
	order, err := PlaceOrder(uuid.New(), items, testMoney(t, 800), testSlot(), uuid.New(), nil)
	require.NoError(t, err)
	return order
}

func TestPlaceOrder(t *testing.T) {
	t.Run("creates pending order with one placement event", func(t *testing.T) {
		order := placedOrder(t)

		assert.Equal(t, OrderStatusPending, order.Status())
		assert.Equal(t, 1, order.Version())
		require.Len(t, order.DomainEvents(), 1)

		placed, ok := order.DomainEvents()[0].(*OrderPlaced)
		require.True(t, ok)
		assert.Equal(t, order.ID(), placed.AggregateID())
		assert.Equal(t, 1, placed.Version())
		assert.Equal(t, int64(800), placed.TotalAmount)
		assert.Len(t, placed.Items, 2)
	})

	t.Run("rejects empty item list", func(t *testing.T) {
		_, err := PlaceOrder(uuid.New(), nil, testMoney(t, 0), testSlot(), uuid.New(), nil)
		require.Error(t, err)
		assert.Equal(t, "ORDER.NO_ITEMS", sharedDomain.CodeOf(err))
	})

	t.Run("rejects total that disagrees with line prices", func(t *testing.T) {
		items := []OrderItem{testOrderItem(t, 500)}
		_, err := PlaceOrder(uuid.New(), items, testMoney(t, 999), testSlot(), uuid.New(), nil)
		require.Error(t, err)
		assert.Equal(t, "ORDER.TOTAL_MISMATCH", sharedDomain.CodeOf(err))
	})
}

func TestOrderTransitions(t *testing.T) {
	t.Run("happy path advances version by one per event", func(t *testing.T) {
		order := placedOrder(t)
		rider := uuid.New()

		require.NoError(t, order.Confirm(uuid.New()))
		require.NoError(t, order.AssignRider(rider))
		require.NoError(t, order.StartDelivery())
		require.NoError(t, order.MarkDelivered("photo-123"))

		assert.Equal(t, OrderStatusDelivered, order.Status())
		assert.Equal(t, 5, order.Version())
		require.Len(t, order.DomainEvents(), 5)
		for i, event := range order.DomainEvents() {
			assert.Equal(t, i+1, event.Version())
		}
		require.NotNil(t, order.RiderID())
		assert.Equal(t, rider, *order.RiderID())
		assert.Equal(t, "photo-123", order.DeliveryProof())
	})

	t.Run("confirm twice fails the second time", func(t *testing.T) {
		order := placedOrder(t)
		require.NoError(t, order.Confirm(uuid.New()))

		err := order.Confirm(uuid.New())
		require.Error(t, err)
		assert.Equal(t, "ORDER.INVALID_TRANSITION", sharedDomain.CodeOf(err))
		assert.Equal(t, 2, order.Version())
	})

	t.Run("assign requires confirmed", func(t *testing.T) {
		order := placedOrder(t)
		err := order.AssignRider(uuid.New())
		require.Error(t, err)
		assert.Equal(t, "ORDER.INVALID_TRANSITION", sharedDomain.CodeOf(err))
	})

	t.Run("deliver requires assigned or out for delivery", func(t *testing.T) {
		order := placedOrder(t)
		require.NoError(t, order.Confirm(uuid.New()))

		err := order.MarkDelivered("")
		require.Error(t, err)
		assert.Equal(t, "ORDER.INVALID_TRANSITION", sharedDomain.CodeOf(err))
	})

	t.Run("failed transition buffers no event", func(t *testing.T) {
		order := placedOrder(t)
		require.Error(t, order.AssignRider(uuid.New()))

		assert.Len(t, order.DomainEvents(), 1)
		assert.Equal(t, 1, order.Version())
		assert.Equal(t, OrderStatusPending, order.Status())
	})
}

func TestOrderCancel(t *testing.T) {
	advance := map[string]func(t *testing.T, o *Order){
		"pending":   func(t *testing.T, o *Order) {},
		"confirmed": func(t *testing.T, o *Order) { require.NoError(t, o.Confirm(uuid.New())) },
		"assigned": func(t *testing.T, o *Order) {
			require.NoError(t, o.Confirm(uuid.New()))
			require.NoError(t, o.AssignRider(uuid.New()))
		},
		"out for delivery": func(t *testing.T, o *Order) {
			require.NoError(t, o.Confirm(uuid.New()))
			require.NoError(t, o.AssignRider(uuid.New()))
			require.NoError(t, o.StartDelivery())
		},
	}
	for name, setup := range advance {
		t.Run("allowed from "+name, func(t *testing.T) {
			order := placedOrder(t)
			setup(t, order)

			require.NoError(t, order.Cancel("changed my mind", uuid.New()))
			assert.Equal(t, OrderStatusCancelled, order.Status())
			assert.Equal(t, "changed my mind", order.CancelReason())
		})
	}

	t.Run("rejected when delivered", func(t *testing.T) {
		order := placedOrder(t)
		require.NoError(t, order.Confirm(uuid.New()))
		require.NoError(t, order.AssignRider(uuid.New()))
		require.NoError(t, order.MarkDelivered(""))

		err := order.Cancel("too late", uuid.New())
		require.Error(t, err)
		assert.Equal(t, "ORDER.INVALID_TRANSITION", sharedDomain.CodeOf(err))
	})

	t.Run("rejected when already cancelled", func(t *testing.T) {
		order := placedOrder(t)
		require.NoError(t, order.Cancel("first", uuid.New()))

		err := order.Cancel("second", uuid.New())
		require.Error(t, err)
		assert.Equal(t, "ORDER.INVALID_TRANSITION", sharedDomain.CodeOf(err))
	})
}

func TestRehydrateOrder(t *testing.T) {
	t.Run("replay reproduces live state", func(t *testing.T) {
		order := placedOrder(t)
		require.NoError(t, order.Confirm(uuid.New()))
		require.NoError(t, order.AssignRider(uuid.New()))

		replayed, err := RehydrateOrder(order.DomainEvents())
		require.NoError(t, err)

		assert.Equal(t, order.ID(), replayed.ID())
		assert.Equal(t, order.Version(), replayed.Version())
		assert.Equal(t, order.State(), replayed.State())
		assert.Empty(t, replayed.DomainEvents())
	})

	t.Run("rehydrated order keeps mutating from replayed state", func(t *testing.T) {
		order := placedOrder(t)
		require.NoError(t, order.Confirm(uuid.New()))

		replayed, err := RehydrateOrder(order.DomainEvents())
		require.NoError(t, err)
		require.NoError(t, replayed.AssignRider(uuid.New()))

		assert.Equal(t, OrderStatusAssigned, replayed.Status())
		assert.Equal(t, 3, replayed.Version())
		require.Len(t, replayed.DomainEvents(), 1)
		assert.Equal(t, 3, replayed.DomainEvents()[0].Version())
	})

	t.Run("empty history fails", func(t *testing.T) {
		_, err := RehydrateOrder(nil)
		require.Error(t, err)
		assert.Equal(t, "ORDER.EMPTY_HISTORY", sharedDomain.CodeOf(err))
	})

	t.Run("history must start with placement", func(t *testing.T) {
		order := placedOrder(t)
		require.NoError(t, order.Confirm(uuid.New()))

		_, err := RehydrateOrder(order.DomainEvents()[1:])
		require.Error(t, err)
		assert.Equal(t, "ORDER.CORRUPT_HISTORY", sharedDomain.CodeOf(err))
	})

	t.Run("gap in versions fails", func(t *testing.T) {
		order := placedOrder(t)
		require.NoError(t, order.Confirm(uuid.New()))
		require.NoError(t, order.AssignRider(uuid.New()))
		events := order.DomainEvents()

		_, err := RehydrateOrder([]sharedDomain.DomainEvent{events[0], events[2]})
		require.Error(t, err)
		assert.Equal(t, "ORDER.CORRUPT_HISTORY", sharedDomain.CodeOf(err))
	})
}

func TestOrderErrorMatching(t *testing.T) {
	order := placedOrder(t)
	require.NoError(t, order.Cancel("done", uuid.New()))

	err := order.Confirm(uuid.New())
	assert.True(t, errors.Is(err, sharedDomain.NewConflict("ORDER.INVALID_TRANSITION", "")))
}
