package persistence

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/greenbasket/greenbasket/internal/identity/domain"
)

// MemoryUserRepository is an in-memory user store used in local mode and by
// tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

// NewMemoryUserRepository creates a repository seeded with the given users.
func NewMemoryUserRepository(users ...*domain.User) *MemoryUserRepository {
	repo := &MemoryUserRepository{users: make(map[uuid.UUID]*domain.User)}
	for _, user := range users {
		repo.users[user.ID()] = user
	}
	return repo
}

// Add registers a user.
func (r *MemoryUserRepository) Add(user *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID()] = user
}

// FindByID returns (nil, nil) when no user exists with the given id.
func (r *MemoryUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[id], nil
}
