package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/greenbasket/greenbasket/internal/shared/application"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
	"github.com/greenbasket/greenbasket/internal/subscriptions/domain"
)

// ProcessRenewalCommand rolls a subscription's billing period forward.
type ProcessRenewalCommand struct {
	SubscriptionID uuid.UUID
}

func (c ProcessRenewalCommand) CommandName() string { return "subscriptions.process_renewal" }

type ProcessRenewalHandler struct {
	subs       domain.Repository
	uow        application.UnitOfWork
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewProcessRenewalHandler(subs domain.Repository, uow application.UnitOfWork, outboxRepo outbox.Repository, logger *slog.Logger) *ProcessRenewalHandler {
	return &ProcessRenewalHandler{subs: subs, uow: uow, outboxRepo: outboxRepo, logger: logger}
}

func (h *ProcessRenewalHandler) Handle(ctx context.Context, cmd ProcessRenewalCommand) error {
	sub, err := h.subs.FindByID(ctx, cmd.SubscriptionID)
	if err != nil {
		return err
	}
	if !sub.ShouldAutoRenew() {
		return sharedDomain.NewConflict("SUBSCRIPTION.NOT_ACTIVE",
			fmt.Sprintf("cannot renew a %s subscription", sub.Status()))
	}
	if err := sub.Renew(); err != nil {
		return err
	}
	application.ApplyEventMetadata(sub.DomainEvents(), application.NewEventMetadata(sub.UserID()))

	if err := persistSubscription(ctx, h.uow, h.subs, h.outboxRepo, sub); err != nil {
		return err
	}

	h.logger.Info("subscription renewed",
		slog.String("subscription_id", cmd.SubscriptionID.String()),
		slog.Time("next_billing_date", sub.NextBillingDate()))
	return nil
}
