package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/greenbasket/greenbasket/internal/shared/application"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
	"github.com/greenbasket/greenbasket/internal/subscriptions/domain"
)

// CancelSubscriptionCommand permanently ends a subscription.
type CancelSubscriptionCommand struct {
	SubscriptionID uuid.UUID
	Reason         string
}

func (c CancelSubscriptionCommand) CommandName() string { return "subscriptions.cancel_subscription" }

type CancelSubscriptionHandler struct {
	subs       domain.Repository
	uow        application.UnitOfWork
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewCancelSubscriptionHandler(subs domain.Repository, uow application.UnitOfWork, outboxRepo outbox.Repository, logger *slog.Logger) *CancelSubscriptionHandler {
	return &CancelSubscriptionHandler{subs: subs, uow: uow, outboxRepo: outboxRepo, logger: logger}
}

func (h *CancelSubscriptionHandler) Handle(ctx context.Context, cmd CancelSubscriptionCommand) error {
	sub, err := h.subs.FindByID(ctx, cmd.SubscriptionID)
	if err != nil {
		return err
	}
	if err := sub.Cancel(cmd.Reason); err != nil {
		return err
	}
	application.ApplyEventMetadata(sub.DomainEvents(), application.NewEventMetadata(sub.UserID()))

	if err := persistSubscription(ctx, h.uow, h.subs, h.outboxRepo, sub); err != nil {
		return err
	}

	h.logger.Info("subscription cancelled",
		slog.String("subscription_id", cmd.SubscriptionID.String()),
		slog.String("reason", cmd.Reason))
	return nil
}
