package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvent struct {
	BaseEvent
}

func TestBaseAggregateRoot_EventBuffer(t *testing.T) {
	root := NewBaseAggregateRoot()
	assert.Equal(t, 0, root.Version())
	assert.Empty(t, root.DomainEvents())

	ev := &stubEvent{BaseEvent: NewBaseEvent(root.ID(), "Stub", "stub.created", 1)}
	root.AddDomainEvent(ev)
	root.IncrementVersion()

	require.Len(t, root.DomainEvents(), 1)
	assert.Equal(t, 1, root.Version())
	assert.Equal(t, 1, root.DomainEvents()[0].Version())

	root.ClearDomainEvents()
	assert.Empty(t, root.DomainEvents())
	assert.Equal(t, 1, root.Version(), "clearing events must not reset the version")
}

func TestRehydrateBaseAggregateRoot(t *testing.T) {
	id := uuid.New()
	entity := NewBaseEntityWithID(id)
	root := RehydrateBaseAggregateRoot(entity, 7)

	assert.Equal(t, id, root.ID())
	assert.Equal(t, 7, root.Version())
	assert.Empty(t, root.DomainEvents(), "rehydrated aggregates carry no pending events")
}

func TestBaseEvent_Envelope(t *testing.T) {
	aggID := uuid.New()
	ev := NewBaseEvent(aggID, "Order", "ordering.order.placed", 1)

	assert.NotEqual(t, uuid.Nil, ev.EventID())
	assert.Equal(t, aggID, ev.AggregateID())
	assert.Equal(t, "Order", ev.AggregateType())
	assert.Equal(t, "ordering.order.placed", ev.RoutingKey())
	assert.Equal(t, 1, ev.Version())
	assert.False(t, ev.OccurredAt().IsZero())
}

func TestBaseEvent_Metadata(t *testing.T) {
	ev := NewBaseEvent(uuid.New(), "Order", "ordering.order.placed", 1)
	meta := EventMetadata{
		CorrelationID: uuid.New(),
		CausationID:   uuid.New(),
		UserID:        uuid.New(),
	}

	ev.SetMetadata(meta)
	assert.Equal(t, meta, ev.Metadata())
}
