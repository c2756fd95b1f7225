package application

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenbasket/greenbasket/internal/shared/domain"
)

type metadataEvent struct {
	domain.BaseEvent
}

func TestNewEventMetadata_CausationDefaultsToCorrelation(t *testing.T) {
	userID := uuid.New()
	meta := NewEventMetadata(userID)

	assert.NotEqual(t, uuid.Nil, meta.CorrelationID)
	assert.Equal(t, meta.CorrelationID, meta.CausationID)
	assert.Equal(t, userID, meta.UserID)
}

func TestApplyEventMetadata(t *testing.T) {
	ev := &metadataEvent{BaseEvent: domain.NewBaseEvent(uuid.New(), "Order", "ordering.order.placed", 1)}
	meta := NewEventMetadata(uuid.New())

	ApplyEventMetadata([]domain.DomainEvent{ev}, meta)

	require.Equal(t, meta, ev.Metadata())
}
