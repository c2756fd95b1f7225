package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/greenbasket/greenbasket/internal/ordering/domain"
	"github.com/greenbasket/greenbasket/internal/shared/application"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
)

// MarkDeliveredCommand completes delivery of an order. Proof is optional,
// typically a photo or signature reference.
type MarkDeliveredCommand struct {
	OrderID     uuid.UUID
	DeliveredBy uuid.UUID
	Proof       string
}

func (c MarkDeliveredCommand) CommandName() string { return "ordering.mark_delivered" }

type MarkDeliveredHandler struct {
	orders     domain.Repository
	uow        application.UnitOfWork
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewMarkDeliveredHandler(orders domain.Repository, uow application.UnitOfWork, outboxRepo outbox.Repository, logger *slog.Logger) *MarkDeliveredHandler {
	return &MarkDeliveredHandler{orders: orders, uow: uow, outboxRepo: outboxRepo, logger: logger}
}

func (h *MarkDeliveredHandler) Handle(ctx context.Context, cmd MarkDeliveredCommand) error {
	order, err := h.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if err := order.MarkDelivered(cmd.Proof); err != nil {
		return err
	}
	application.ApplyEventMetadata(order.DomainEvents(), application.NewEventMetadata(cmd.DeliveredBy))

	if err := persistOrder(ctx, h.uow, h.orders, h.outboxRepo, order); err != nil {
		return err
	}

	h.logger.Info("order delivered", slog.String("order_id", cmd.OrderID.String()))
	return nil
}
