package outbox

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory outbox used in local mode and by tests.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	msgs   map[int64]*Message
}

// NewMemoryRepository creates an empty in-memory outbox.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID: 1,
		msgs:   make(map[int64]*Message),
	}
}

// Save stores a new outbox message.
func (r *MemoryRepository) Save(ctx context.Context, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *msg
	stored.ID = r.nextID
	r.nextID++
	r.msgs[stored.ID] = &stored
	msg.ID = stored.ID
	return nil
}

// SaveBatch stores multiple outbox messages.
func (r *MemoryRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	for _, msg := range msgs {
		if err := r.Save(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// GetUnpublished retrieves publishable messages ordered by creation time.
func (r *MemoryRepository) GetUnpublished(ctx context.Context, limit int) ([]*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	pending := make([]*Message, 0)
	for _, msg := range r.msgs {
		if msg.PublishedAt != nil || msg.DeadLetteredAt != nil {
			continue
		}
		if msg.NextRetryAt != nil && msg.NextRetryAt.After(now) {
			continue
		}
		copied := *msg
		pending = append(pending, &copied)
	}

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].ID < pending[j].ID
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// MarkPublished marks a message as successfully published.
func (r *MemoryRepository) MarkPublished(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.msgs[id]
	if !ok {
		return fmt.Errorf("outbox message %d not found", id)
	}
	now := time.Now()
	msg.PublishedAt = &now
	msg.LastError = nil
	return nil
}

// MarkFailed records a publish failure and schedules the next retry.
func (r *MemoryRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.msgs[id]
	if !ok {
		return fmt.Errorf("outbox message %d not found", id)
	}
	msg.RetryCount++
	msg.LastError = &errMsg
	retryAt := nextRetryAt
	msg.NextRetryAt = &retryAt
	return nil
}

// MarkDead dead-letters a message that exhausted its retries.
func (r *MemoryRepository) MarkDead(ctx context.Context, id int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.msgs[id]
	if !ok {
		return fmt.Errorf("outbox message %d not found", id)
	}
	now := time.Now()
	msg.DeadLetteredAt = &now
	msg.DeadLetterReason = &reason
	return nil
}

// DeleteOld removes published messages older than the retention period.
func (r *MemoryRepository) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	var deleted int64
	for id, msg := range r.msgs {
		if msg.PublishedAt != nil && msg.PublishedAt.Before(cutoff) {
			delete(r.msgs, id)
			deleted++
		}
	}
	return deleted, nil
}
