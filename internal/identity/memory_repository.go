package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/musicmoon/marketplace/internal/apperr"
)

// MemoryRepository is an in-memory identity store for development and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]Identity
	now   func() time.Time
}

// NewMemoryRepository builds an in-memory identity store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]Identity), now: func() time.Time { return time.Now().UTC() }}
}

func (r *MemoryRepository) Create(_ context.Context, identity Identity) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == identity.Email {
			return Identity{}, fmt.Errorf("email %s: %w", identity.Email, apperr.ErrAlreadyExists)
		}
	}
	now := r.now()
	identity.ID = uuid.NewString()
	identity.CreatedAt = now
	identity.UpdatedAt = now
	r.users[identity.ID] = identity
	return identity, nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.users[id]
	if !ok {
		return Identity{}, apperr.ErrNotFound
	}
	return identity, nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, identity := range r.users {
		if identity.Email == email {
			return identity, nil
		}
	}
	return Identity{}, apperr.ErrNotFound
}

func (r *MemoryRepository) Update(_ context.Context, id string, patch Patch) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.users[id]
	if !ok {
		return Identity{}, apperr.ErrNotFound
	}
	patch.Apply(&identity)
	identity.UpdatedAt = r.now()
	r.users[id] = identity
	return identity, nil
}
