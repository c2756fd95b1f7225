package eventstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/greenbasket/greenbasket/internal/shared/domain"
)

// Envelope is the decoded form of a Record handed to event decoders.
type Envelope struct {
	EventID       uuid.UUID
	AggregateID   uuid.UUID
	AggregateType string
	EventType     string
	Version       int
	OccurredAt    time.Time
	Metadata      domain.EventMetadata
	Payload       json.RawMessage
}

// DecodeFunc turns an envelope back into a concrete domain event.
type DecodeFunc func(env Envelope) (domain.DomainEvent, error)

// Codec maps event type tags to decoders. A tag without a registered
// decoder is a fatal read error: silently dropping an event would corrupt
// all subsequent replay.
type Codec struct {
	decoders map[string]DecodeFunc
}

// NewCodec creates an empty codec.
func NewCodec() *Codec {
	return &Codec{decoders: make(map[string]DecodeFunc)}
}

// Register adds a decoder for an event type tag.
func (c *Codec) Register(eventType string, fn DecodeFunc) {
	c.decoders[eventType] = fn
}

// Decode turns a stored record back into a domain event.
func (c *Codec) Decode(rec Record) (domain.DomainEvent, error) {
	fn, ok := c.decoders[rec.EventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q at version %d of aggregate %s", rec.EventType, rec.Version, rec.AggregateID)
	}

	var meta domain.EventMetadata
	if len(rec.Metadata) > 0 {
		if err := json.Unmarshal(rec.Metadata, &meta); err != nil {
			return nil, fmt.Errorf("malformed metadata for event %s: %w", rec.EventID, err)
		}
	}

	event, err := fn(Envelope{
		EventID:       rec.EventID,
		AggregateID:   rec.AggregateID,
		AggregateType: rec.AggregateType,
		EventType:     rec.EventType,
		Version:       rec.Version,
		OccurredAt:    rec.OccurredAt,
		Metadata:      meta,
		Payload:       rec.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s event %s: %w", rec.EventType, rec.EventID, err)
	}
	return event, nil
}

// DecodeAll decodes an ordered event history, failing on the first
// undecodable record.
func (c *Codec) DecodeAll(records []Record) ([]domain.DomainEvent, error) {
	events := make([]domain.DomainEvent, 0, len(records))
	for _, rec := range records {
		event, err := c.Decode(rec)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// Encode serializes a domain event into a storable record. The routing key
// doubles as the event type tag, matching what the decoders register.
func Encode(event domain.DomainEvent) (Record, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Record{}, fmt.Errorf("marshal event %s: %w", event.EventID(), err)
	}

	metadata, err := json.Marshal(event.Metadata())
	if err != nil {
		return Record{}, fmt.Errorf("marshal event metadata %s: %w", event.EventID(), err)
	}

	return Record{
		EventID:       event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		EventType:     event.RoutingKey(),
		Version:       event.Version(),
		Payload:       payload,
		Metadata:      metadata,
		OccurredAt:    event.OccurredAt(),
	}, nil
}

// EncodeAll serializes the aggregate's uncommitted events in order.
func EncodeAll(events []domain.DomainEvent) ([]Record, error) {
	records := make([]Record, 0, len(events))
	for _, event := range events {
		rec, err := Encode(event)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// RehydrateBase rebuilds the event envelope for a decoded event struct.
func RehydrateBase(env Envelope) domain.BaseEvent {
	return domain.RehydrateBaseEvent(
		env.EventID,
		env.AggregateID,
		env.AggregateType,
		env.EventType,
		env.Version,
		env.OccurredAt,
		env.Metadata,
	)
}
