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

// PauseSubscriptionCommand suspends an active subscription, optionally
// until a planned resume date.
type PauseSubscriptionCommand struct {
	SubscriptionID uuid.UUID
	Reason         string
	ResumeDate     *time.Time
}

func (c PauseSubscriptionCommand) CommandName() string { return "subscriptions.pause_subscription" }

type PauseSubscriptionHandler struct {
	subs       domain.Repository
	uow        application.UnitOfWork
	outboxRepo outbox.Repository
	logger     *slog.Logger
	now        func() time.Time
}

func NewPauseSubscriptionHandler(subs domain.Repository, uow application.UnitOfWork, outboxRepo outbox.Repository, logger *slog.Logger) *PauseSubscriptionHandler {
	return &PauseSubscriptionHandler{
		subs:       subs,
		uow:        uow,
		outboxRepo: outboxRepo,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (h *PauseSubscriptionHandler) Handle(ctx context.Context, cmd PauseSubscriptionCommand) error {
	sub, err := h.subs.FindByID(ctx, cmd.SubscriptionID)
	if err != nil {
		return err
	}
	if !sub.IsActive() {
		return sharedDomain.NewConflict("SUBSCRIPTION.NOT_ACTIVE",
			fmt.Sprintf("cannot pause a %s subscription", sub.Status()))
	}
	if err := sub.Pause(cmd.Reason, cmd.ResumeDate, h.now()); err != nil {
		return err
	}
	application.ApplyEventMetadata(sub.DomainEvents(), application.NewEventMetadata(sub.UserID()))

	if err := persistSubscription(ctx, h.uow, h.subs, h.outboxRepo, sub); err != nil {
		return err
	}

	h.logger.Info("subscription paused",
		slog.String("subscription_id", cmd.SubscriptionID.String()),
		slog.String("reason", cmd.Reason))
	return nil
}
