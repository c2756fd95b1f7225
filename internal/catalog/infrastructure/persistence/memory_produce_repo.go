package persistence

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/greenbasket/greenbasket/internal/catalog/domain"
)

// MemoryProduceRepository is an in-memory catalog used in local mode and by
// tests.
type MemoryProduceRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*domain.ProduceItem
}

// NewMemoryProduceRepository creates a repository seeded with the given
// items.
func NewMemoryProduceRepository(items ...*domain.ProduceItem) *MemoryProduceRepository {
	repo := &MemoryProduceRepository{items: make(map[uuid.UUID]*domain.ProduceItem)}
	for _, item := range items {
		repo.items[item.ID()] = item
	}
	return repo
}

// Add registers a produce item.
func (r *MemoryProduceRepository) Add(item *domain.ProduceItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID()] = item
}

// FindByID returns (nil, nil) when the item does not exist.
func (r *MemoryProduceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ProduceItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items[id], nil
}

// FindByIDs returns the subset of requested items that exist.
func (r *MemoryProduceRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.ProduceItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make(map[uuid.UUID]*domain.ProduceItem, len(ids))
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			found[id] = item
		}
	}
	return found, nil
}
