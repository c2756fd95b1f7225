package idempotency

import (
	"context"
	"time"
)

// Store records idempotency keys so a retried command can be detected
// instead of executed twice.
type Store interface {
	// Acquire claims the key. It returns false when the key was already
	// claimed, meaning the command has run (or is running) before.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees a claimed key, used when the command failed and a
	// retry should be allowed.
	Release(ctx context.Context, key string) error
}
