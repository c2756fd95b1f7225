package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/greenbasket/greenbasket/internal/shared/application"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
	"github.com/greenbasket/greenbasket/internal/subscriptions/domain"
)

// ResumeSubscriptionCommand reactivates a paused subscription.
type ResumeSubscriptionCommand struct {
	SubscriptionID uuid.UUID
}

func (c ResumeSubscriptionCommand) CommandName() string { return "subscriptions.resume_subscription" }

type ResumeSubscriptionHandler struct {
	subs       domain.Repository
	uow        application.UnitOfWork
	outboxRepo outbox.Repository
	logger     *slog.Logger
	now        func() time.Time
}

func NewResumeSubscriptionHandler(subs domain.Repository, uow application.UnitOfWork, outboxRepo outbox.Repository, logger *slog.Logger) *ResumeSubscriptionHandler {
	return &ResumeSubscriptionHandler{
		subs:       subs,
		uow:        uow,
		outboxRepo: outboxRepo,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (h *ResumeSubscriptionHandler) Handle(ctx context.Context, cmd ResumeSubscriptionCommand) error {
	sub, err := h.subs.FindByID(ctx, cmd.SubscriptionID)
	if err != nil {
		return err
	}
	if sub.Status() != domain.SubscriptionStatusPaused {
		return sharedDomain.NewConflict("SUBSCRIPTION.NOT_PAUSED",
			fmt.Sprintf("cannot resume a %s subscription", sub.Status()))
	}
	if err := sub.Resume(h.now()); err != nil {
		return err
	}
	application.ApplyEventMetadata(sub.DomainEvents(), application.NewEventMetadata(sub.UserID()))

	if err := persistSubscription(ctx, h.uow, h.subs, h.outboxRepo, sub); err != nil {
		return err
	}

	h.logger.Info("subscription resumed", slog.String("subscription_id", cmd.SubscriptionID.String()))
	return nil
}
