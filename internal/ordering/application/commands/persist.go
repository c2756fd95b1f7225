package commands

import (
	"context"

	"github.com/greenbasket/greenbasket/internal/ordering/domain"
	"github.com/greenbasket/greenbasket/internal/shared/application"
	sharedDomain "github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/outbox"
)

// persistOrder writes the order's uncommitted events and the matching
// outbox rows in one transaction. Publication happens after commit, from
// the outbox, never inline. The uncommitted buffer is cleared only once
// the transaction commits, so a rolled-back save can be retried with the
// same aggregate instance.
func persistOrder(
	ctx context.Context,
	uow application.UnitOfWork,
	orders domain.Repository,
	outboxRepo outbox.Repository,
	order *domain.Order,
) error {
	events := order.DomainEvents()
	msgs, err := outbox.NewMessages(events)
	if err != nil {
		return sharedDomain.NewInternal("ORDER.SERIALIZATION_FAILED", "failed to stage order events for publication", err)
	}

	err = application.WithUnitOfWork(ctx, uow, func(txCtx context.Context) error {
		if err := orders.Save(txCtx, order); err != nil {
			return err
		}
		return outboxRepo.SaveBatch(txCtx, msgs)
	})
	if err != nil {
		return err
	}

	order.ClearDomainEvents()
	return nil
}
