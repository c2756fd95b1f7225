package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/greenbasket/greenbasket/internal/ordering/domain"
	"github.com/greenbasket/greenbasket/internal/shared/application"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
)

// CancelOrderCommand cancels any not-yet-delivered order.
type CancelOrderCommand struct {
	OrderID     uuid.UUID
	Reason      string
	CancelledBy uuid.UUID
}

func (c CancelOrderCommand) CommandName() string { return "ordering.cancel_order" }

type CancelOrderHandler struct {
	orders     domain.Repository
	uow        application.UnitOfWork
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewCancelOrderHandler(orders domain.Repository, uow application.UnitOfWork, outboxRepo outbox.Repository, logger *slog.Logger) *CancelOrderHandler {
	return &CancelOrderHandler{orders: orders, uow: uow, outboxRepo: outboxRepo, logger: logger}
}

func (h *CancelOrderHandler) Handle(ctx context.Context, cmd CancelOrderCommand) error {
	order, err := h.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if err := order.Cancel(cmd.Reason, cmd.CancelledBy); err != nil {
		return err
	}
	application.ApplyEventMetadata(order.DomainEvents(), application.NewEventMetadata(cmd.CancelledBy))

	if err := persistOrder(ctx, h.uow, h.orders, h.outboxRepo, order); err != nil {
		return err
	}

	h.logger.Info("order cancelled",
		slog.String("order_id", cmd.OrderID.String()),
		slog.String("reason", cmd.Reason))
	return nil
}
