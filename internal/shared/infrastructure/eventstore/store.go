package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrVersionConflict is returned when the event log already contains an
	// event at a version the caller is about to write. The caller must
	// re-load the aggregate and retry or surface a conflict.
	ErrVersionConflict = errors.New("event stream version conflict")

	// ErrNoSnapshot is returned when no snapshot exists for an aggregate.
	ErrNoSnapshot = errors.New("no snapshot for aggregate")
)

// Record is one persisted event-log row. Payload holds the event-specific
// fields, Metadata the correlation envelope.
type Record struct {
	EventID       uuid.UUID
	AggregateID   uuid.UUID
	AggregateType string
	EventType     string
	Version       int
	Payload       json.RawMessage
	Metadata      json.RawMessage
	OccurredAt    time.Time
}

// Snapshot is a cached projection of aggregate state at a known version.
// An optimization only: state must always be rebuildable from the log.
type Snapshot struct {
	AggregateID   uuid.UUID
	AggregateType string
	Version       int
	State         json.RawMessage
	UpdatedAt     time.Time
}

// Store is an append-only event log with per-aggregate snapshots. Append
// must be atomic for the given batch and must fail with ErrVersionConflict
// on a (aggregate id, version) clash, never overwrite.
type Store interface {
	Append(ctx context.Context, records []Record) error
	Load(ctx context.Context, aggregateType string, aggregateID uuid.UUID) ([]Record, error)
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	LoadSnapshot(ctx context.Context, aggregateType string, aggregateID uuid.UUID) (Snapshot, error)
}
