package outbox

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenbasket/greenbasket/internal/shared/domain"
	"github.com/greenbasket/greenbasket/internal/shared/infrastructure/eventbus"
)

type outboxTestEvent struct {
	domain.BaseEvent
	Reason string `json:"reason"`
}

func TestNewMessage(t *testing.T) {
	aggID := uuid.New()
	ev := &outboxTestEvent{
		BaseEvent: domain.NewBaseEvent(aggID, "Order", "ordering.order.cancelled", 3),
		Reason:    "customer request",
	}
	ev.SetMetadata(domain.EventMetadata{CorrelationID: uuid.New(), UserID: uuid.New()})

	msg, err := NewMessage(ev)
	require.NoError(t, err)

	assert.Equal(t, ev.EventID(), msg.EventID)
	assert.Equal(t, aggID, msg.AggregateID)
	assert.Equal(t, "Order", msg.AggregateType)
	assert.Equal(t, "ordering.order.cancelled", msg.RoutingKey)
	assert.False(t, msg.IsPublished())

	// the payload is the full wire envelope, including version
	var envelope eventbus.ConsumedEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &envelope))
	assert.Equal(t, 3, envelope.Version)
	assert.Equal(t, ev.EventID(), envelope.EventID)

	var body struct {
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(envelope.Payload, &body))
	assert.Equal(t, "customer request", body.Reason)
}

func TestNewMessages_PreservesOrder(t *testing.T) {
	aggID := uuid.New()
	first := &outboxTestEvent{BaseEvent: domain.NewBaseEvent(aggID, "Order", "ordering.order.placed", 1)}
	second := &outboxTestEvent{BaseEvent: domain.NewBaseEvent(aggID, "Order", "ordering.order.confirmed", 2)}

	msgs, err := NewMessages([]domain.DomainEvent{first, second})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.EventID(), msgs[0].EventID)
	assert.Equal(t, second.EventID(), msgs[1].EventID)
}

func TestMessage_CanRetry(t *testing.T) {
	msg := &Message{RetryCount: 4}
	assert.True(t, msg.CanRetry(5))
	assert.False(t, msg.CanRetry(4))
}
