package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/greenbasket/greenbasket/internal/ordering/domain"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
)

// ListOrdersHandler serves list queries from the denormalized read model.
// The event log stays the authority; these rows exist for query ergonomics.
type ListOrdersHandler struct {
	orders domain.Repository
}

func NewListOrdersHandler(orders domain.Repository) *ListOrdersHandler {
	return &ListOrdersHandler{orders: orders}
}

func (h *ListOrdersHandler) ByUser(ctx context.Context, userID uuid.UUID) ([]domain.OrderSummary, error) {
	return h.orders.FindByUserID(ctx, userID)
}

func (h *ListOrdersHandler) ByStatus(ctx context.Context, status string) ([]domain.OrderSummary, error) {
	s := domain.OrderStatus(status)
	switch s {
	case domain.OrderStatusPending, domain.OrderStatusConfirmed, domain.OrderStatusAssigned,
		domain.OrderStatusOutForDelivery, domain.OrderStatusDelivered, domain.OrderStatusCancelled:
	default:
		return nil, sharedDomain.NewValidation("ORDER.INVALID_STATUS", "unknown order status "+status)
	}
	return h.orders.FindByStatus(ctx, s)
}

// GetOrderHandler rehydrates a single order from its event history.
type GetOrderHandler struct {
	orders domain.Repository
}

func NewGetOrderHandler(orders domain.Repository) *GetOrderHandler {
	return &GetOrderHandler{orders: orders}
}

func (h *GetOrderHandler) ByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return h.orders.FindByID(ctx, id)
}
