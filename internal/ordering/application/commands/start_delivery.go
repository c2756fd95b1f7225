package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/greenbasket/greenbasket/internal/ordering/domain"
	"github.com/greenbasket/greenbasket/internal/shared/application"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
)

// StartDeliveryCommand marks an assigned order as on its way.
type StartDeliveryCommand struct {
	OrderID   uuid.UUID
	StartedBy uuid.UUID
}

func (c StartDeliveryCommand) CommandName() string { return "ordering.start_delivery" }

type StartDeliveryHandler struct {
	orders     domain.Repository
	uow        application.UnitOfWork
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewStartDeliveryHandler(orders domain.Repository, uow application.UnitOfWork, outboxRepo outbox.Repository, logger *slog.Logger) *StartDeliveryHandler {
	return &StartDeliveryHandler{orders: orders, uow: uow, outboxRepo: outboxRepo, logger: logger}
}

func (h *StartDeliveryHandler) Handle(ctx context.Context, cmd StartDeliveryCommand) error {
	order, err := h.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if err := order.StartDelivery(); err != nil {
		return err
	}
	application.ApplyEventMetadata(order.DomainEvents(), application.NewEventMetadata(cmd.StartedBy))

	if err := persistOrder(ctx, h.uow, h.orders, h.outboxRepo, order); err != nil {
		return err
	}

	h.logger.Info("order out for delivery", slog.String("order_id", cmd.OrderID.String()))
	return nil
}
