package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPersistSubscriptionKeepsEventsWhenTransactionFails(t *testing.T) {
	sub := subscriptionWithItems(t, uuid.New())
	require.NoError(t, sub.Cancel("moving away"))
	require.NotEmpty(t, sub.DomainEvents())

	subs := &mockSubscriptionRepository{}
	subs.On("Save", mock.Anything, sub).Return(nil)
	outboxRepo := &mockOutboxRepository{}
	outboxRepo.On("SaveBatch", mock.Anything, mock.Anything).Return(errors.New("outbox insert failed")).Once()

	err := persistSubscription(context.Background(), noopUnitOfWork{}, subs, outboxRepo, sub)
	require.Error(t, err)

	// The rolled-back events must survive so the same instance can retry.
	require.NotEmpty(t, sub.DomainEvents())

	outboxRepo.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, persistSubscription(context.Background(), noopUnitOfWork{}, subs, outboxRepo, sub))
	assert.Empty(t, sub.DomainEvents())
}

func TestPersistSubscriptionClearsEventsOnCommit(t *testing.T) {
	sub := subscriptionWithItems(t, uuid.New())
	require.NoError(t, sub.Cancel("moving away"))

	subs := &mockSubscriptionRepository{}
	subs.On("Save", mock.Anything, sub).Return(nil)
	outboxRepo := &mockOutboxRepository{}
	outboxRepo.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, persistSubscription(context.Background(), noopUnitOfWork{}, subs, outboxRepo, sub))
	assert.Empty(t, sub.DomainEvents())
}
