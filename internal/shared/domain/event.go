package domain

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents a fact that already happened to an aggregate.
// Version establishes a total order of events within one aggregate stream:
// the first event of a stream has version 1, every subsequent event
// increments it by exactly 1.
type DomainEvent interface {
	EventID() uuid.UUID
	AggregateID() uuid.UUID
	AggregateType() string
	RoutingKey() string
	Version() int
	OccurredAt() time.Time
	Metadata() EventMetadata
}

// EventMetadata contains tracing and context information for events.
// CausationID defaults to CorrelationID when no explicit cause is known.
type EventMetadata struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
	CausationID   uuid.UUID `json:"causation_id"`
	UserID        uuid.UUID `json:"user_id"`
}

// BaseEvent provides common event functionality. Payload fields live on the
// concrete event structs; BaseEvent carries only the envelope.
type BaseEvent struct {
	eventID       uuid.UUID
	aggregateID   uuid.UUID
	aggregateType string
	routingKey    string
	version       int
	occurredAt    time.Time
	metadata      EventMetadata
}

// NewBaseEvent creates a new event envelope for the given aggregate stream
// position.
func NewBaseEvent(aggregateID uuid.UUID, aggregateType, routingKey string, version int) BaseEvent {
	return BaseEvent{
		eventID:       uuid.New(),
		aggregateID:   aggregateID,
		aggregateType: aggregateType,
		routingKey:    routingKey,
		version:       version,
		occurredAt:    time.Now().UTC(),
	}
}

// RehydrateBaseEvent recreates an event envelope from the event log.
func RehydrateBaseEvent(
	eventID uuid.UUID,
	aggregateID uuid.UUID,
	aggregateType string,
	routingKey string,
	version int,
	occurredAt time.Time,
	metadata EventMetadata,
) BaseEvent {
	return BaseEvent{
		eventID:       eventID,
		aggregateID:   aggregateID,
		aggregateType: aggregateType,
		routingKey:    routingKey,
		version:       version,
		occurredAt:    occurredAt,
		metadata:      metadata,
	}
}

func (e BaseEvent) EventID() uuid.UUID      { return e.eventID }
func (e BaseEvent) AggregateID() uuid.UUID  { return e.aggregateID }
func (e BaseEvent) AggregateType() string   { return e.aggregateType }
func (e BaseEvent) RoutingKey() string      { return e.routingKey }
func (e BaseEvent) Version() int            { return e.version }
func (e BaseEvent) OccurredAt() time.Time   { return e.occurredAt }
func (e BaseEvent) Metadata() EventMetadata { return e.metadata }

// SetMetadata sets the event metadata.
func (e *BaseEvent) SetMetadata(metadata EventMetadata) {
	e.metadata = metadata
}
