package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/greenbasket/greenbasket/internal/ordering/domain"
	"github.com/greenbasket/greenbasket/internal/shared/application"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
)

// AssignRiderCommand assigns a delivery rider to a confirmed order.
type AssignRiderCommand struct {
	OrderID uuid.UUID
	RiderID uuid.UUID
}

func (c AssignRiderCommand) CommandName() string { return "ordering.assign_rider" }

type AssignRiderHandler struct {
	orders     domain.Repository
	uow        application.UnitOfWork
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewAssignRiderHandler(orders domain.Repository, uow application.UnitOfWork, outboxRepo outbox.Repository, logger *slog.Logger) *AssignRiderHandler {
	return &AssignRiderHandler{orders: orders, uow: uow, outboxRepo: outboxRepo, logger: logger}
}

func (h *AssignRiderHandler) Handle(ctx context.Context, cmd AssignRiderCommand) error {
	order, err := h.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if err := order.AssignRider(cmd.RiderID); err != nil {
		return err
	}
	application.ApplyEventMetadata(order.DomainEvents(), application.NewEventMetadata(cmd.RiderID))

	if err := persistOrder(ctx, h.uow, h.orders, h.outboxRepo, order); err != nil {
		return err
	}

	h.logger.Info("rider assigned",
		slog.String("order_id", cmd.OrderID.String()),
		slog.String("rider_id", cmd.RiderID.String()))
	return nil
}
