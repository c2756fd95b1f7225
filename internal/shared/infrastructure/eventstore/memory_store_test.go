package eventstore

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(aggID uuid.UUID, version int) Record {
	return Record{
		EventID:       uuid.New(),
		AggregateID:   aggID,
		AggregateType: "Order",
		EventType:     "ordering.order.placed",
		Version:       version,
		Payload:       json.RawMessage(`{}`),
		Metadata:      json.RawMessage(`{}`),
		OccurredAt:    time.Now().UTC(),
	}
}

func TestMemoryStore_AppendAndLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	aggID := uuid.New()

	require.NoError(t, store.Append(ctx, []Record{record(aggID, 1), record(aggID, 2)}))

	records, err := store.Load(ctx, "Order", aggID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Version)
	assert.Equal(t, 2, records[1].Version)
}

func TestMemoryStore_VersionConflict(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	aggID := uuid.New()

	require.NoError(t, store.Append(ctx, []Record{record(aggID, 1)}))

	err := store.Append(ctx, []Record{record(aggID, 1)})
	assert.ErrorIs(t, err, ErrVersionConflict)

	// nothing partial was written
	records, err := store.Load(ctx, "Order", aggID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMemoryStore_ConflictRejectsWholeBatch(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	aggID := uuid.New()

	require.NoError(t, store.Append(ctx, []Record{record(aggID, 1)}))

	err := store.Append(ctx, []Record{record(aggID, 2), record(aggID, 1)})
	assert.ErrorIs(t, err, ErrVersionConflict)

	records, _ := store.Load(ctx, "Order", aggID)
	assert.Len(t, records, 1, "a batch with any conflicting version must write nothing")
}

func TestMemoryStore_ConcurrentWritersExactlyOneWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	aggID := uuid.New()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Append(ctx, []Record{record(aggID, 1)})
		}(i)
	}
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrVersionConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts, "exactly one concurrent save must be rejected")
}

func TestMemoryStore_Snapshots(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	aggID := uuid.New()

	_, err := store.LoadSnapshot(ctx, "Order", aggID)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	snap := Snapshot{
		AggregateID:   aggID,
		AggregateType: "Order",
		Version:       3,
		State:         json.RawMessage(`{"status":"CONFIRMED"}`),
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.SaveSnapshot(ctx, snap))

	loaded, err := store.LoadSnapshot(ctx, "Order", aggID)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Version)

	snap.Version = 4
	require.NoError(t, store.SaveSnapshot(ctx, snap))
	loaded, _ = store.LoadSnapshot(ctx, "Order", aggID)
	assert.Equal(t, 4, loaded.Version)
}
