package commands

import (
	"context"

	"github.com/greenbasket/greenbasket/internal/shared/application"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
	"github.com/greenbasket/greenbasket/internal/subscriptions/domain"
)

// persistSubscription writes the subscription's uncommitted events and the
// matching outbox rows in one transaction. The uncommitted buffer is
// cleared only once the transaction commits, so a rolled-back save can be
// retried with the same aggregate instance.
func persistSubscription(
	ctx context.Context,
	uow application.UnitOfWork,
	subs domain.Repository,
	outboxRepo outbox.Repository,
	sub *domain.Subscription,
) error {
	msgs, err := outbox.NewMessages(sub.DomainEvents())
	if err != nil {
		return sharedDomain.NewInternal("SUBSCRIPTION.SERIALIZATION_FAILED", "failed to stage subscription events for publication", err)
	}

	err = application.WithUnitOfWork(ctx, uow, func(txCtx context.Context) error {
		if err := subs.Save(txCtx, sub); err != nil {
			return err
		}
		return outboxRepo.SaveBatch(txCtx, msgs)
	})
	if err != nil {
		return err
	}

	sub.ClearDomainEvents()
	return nil
}
