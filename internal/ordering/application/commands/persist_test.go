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

func TestPersistOrderKeepsEventsWhenTransactionFails(t *testing.T) {
	order := storedOrder(t)
	require.NoError(t, order.Confirm(uuid.New()))
	require.NotEmpty(t, order.DomainEvents())

	orders := &mockOrderRepository{}
	orders.On("Save", mock.Anything, order).Return(nil)
	outboxRepo := &mockOutboxRepository{}
	outboxRepo.On("SaveBatch", mock.Anything, mock.Anything).Return(errors.New("outbox insert failed")).Once()

	err := persistOrder(context.Background(), noopUnitOfWork{}, orders, outboxRepo, order)
	require.Error(t, err)

	// The rolled-back events must survive so the same instance can retry.
	require.NotEmpty(t, order.DomainEvents())

	outboxRepo.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, persistOrder(context.Background(), noopUnitOfWork{}, orders, outboxRepo, order))
	assert.Empty(t, order.DomainEvents())
}

func TestPersistOrderClearsEventsOnCommit(t *testing.T) {
	order := storedOrder(t)
	require.NoError(t, order.Confirm(uuid.New()))

	orders := &mockOrderRepository{}
	orders.On("Save", mock.Anything, order).Return(nil)
	outboxRepo := &mockOutboxRepository{}
	outboxRepo.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, persistOrder(context.Background(), noopUnitOfWork{}, orders, outboxRepo, order))
	assert.Empty(t, order.DomainEvents())
}
