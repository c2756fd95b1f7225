package eventstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type streamKey struct {
	aggregateType string
	aggregateID   uuid.UUID
}

// MemoryStore is an in-memory event store with the same concurrency
// contract as the durable implementations. Used by tests and local tooling.
type MemoryStore struct {
	mu        sync.Mutex
	streams   map[streamKey][]Record
	snapshots map[streamKey]Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		streams:   make(map[streamKey][]Record),
		snapshots: make(map[streamKey]Snapshot),
	}
}

// Append atomically appends the batch, rejecting any version clash.
func (s *MemoryStore) Append(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// validate the whole batch before mutating anything
	for _, rec := range records {
		key := streamKey{aggregateType: rec.AggregateType, aggregateID: rec.AggregateID}
		for _, existing := range s.streams[key] {
			if existing.Version == rec.Version {
				return ErrVersionConflict
			}
		}
	}

	for _, rec := range records {
		key := streamKey{aggregateType: rec.AggregateType, aggregateID: rec.AggregateID}
		s.streams[key] = append(s.streams[key], rec)
	}
	return nil
}

// Load returns the stream ordered by version.
func (s *MemoryStore) Load(ctx context.Context, aggregateType string, aggregateID uuid.UUID) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[streamKey{aggregateType: aggregateType, aggregateID: aggregateID}]
	out := make([]Record, len(stream))
	copy(out, stream)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// SaveSnapshot upserts the snapshot for an aggregate.
func (s *MemoryStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[streamKey{aggregateType: snap.AggregateType, aggregateID: snap.AggregateID}] = snap
	return nil
}

// LoadSnapshot returns the latest snapshot, or ErrNoSnapshot.
func (s *MemoryStore) LoadSnapshot(ctx context.Context, aggregateType string, aggregateID uuid.UUID) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[streamKey{aggregateType: aggregateType, aggregateID: aggregateID}]
	if !ok {
		return Snapshot{}, ErrNoSnapshot
	}
	return snap, nil
}
