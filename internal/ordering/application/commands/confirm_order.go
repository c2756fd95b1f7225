package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/greenbasket/greenbasket/internal/ordering/domain"
	"github.com/greenbasket/greenbasket/internal/shared/application"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
)

// ConfirmOrderCommand confirms a pending order.
type ConfirmOrderCommand struct {
	OrderID     uuid.UUID
	ConfirmedBy uuid.UUID
}

func (c ConfirmOrderCommand) CommandName() string { return "ordering.confirm_order" }

type ConfirmOrderHandler struct {
	orders     domain.Repository
	uow        application.UnitOfWork
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewConfirmOrderHandler(orders domain.Repository, uow application.UnitOfWork, outboxRepo outbox.Repository, logger *slog.Logger) *ConfirmOrderHandler {
	return &ConfirmOrderHandler{orders: orders, uow: uow, outboxRepo: outboxRepo, logger: logger}
}

func (h *ConfirmOrderHandler) Handle(ctx context.Context, cmd ConfirmOrderCommand) error {
	order, err := h.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if err := order.Confirm(cmd.ConfirmedBy); err != nil {
		return err
	}
	application.ApplyEventMetadata(order.DomainEvents(), application.NewEventMetadata(cmd.ConfirmedBy))

	if err := persistOrder(ctx, h.uow, h.orders, h.outboxRepo, order); err != nil {
		return err
	}

	h.logger.Info("order confirmed",
		slog.String("order_id", cmd.OrderID.String()),
		slog.String("confirmed_by", cmd.ConfirmedBy.String()))
	return nil
}
