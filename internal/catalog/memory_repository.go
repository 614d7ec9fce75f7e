package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/musicmoon/marketplace/internal/apperr"
)

// MemoryRepository is an in-memory item store for development and tests.
// Items are listed in insertion order unless ordered is requested.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Item
	order []string
	now   func() time.Time

	// OrderedErr, when set, is returned by every ordered List call to mimic
	// a store whose compound index is missing.
	OrderedErr error
}

// NewMemoryRepository builds an in-memory item store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]Item), now: func() time.Time { return time.Now().UTC() }}
}

func (r *MemoryRepository) Create(_ context.Context, item Item) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.ID = uuid.NewString()
	item.CreatedAt = r.now()
	item.Creator, item.Owner = nil, nil
	r.items[item.ID] = item
	r.order = append(r.order, item.ID)
	return item, nil
}

// Seed stores items as given, keeping their identifiers and timestamps.
func (r *MemoryRepository) Seed(items ...Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		if _, ok := r.items[item.ID]; !ok {
			r.order = append(r.order, item.ID)
		}
		item.Creator, item.Owner = nil, nil
		r.items[item.ID] = item
	}
}

func (r *MemoryRepository) Get(_ context.Context, id string) (Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return Item{}, apperr.ErrNotFound
	}
	return item, nil
}

func (r *MemoryRepository) List(_ context.Context, scope Scope, ordered bool) ([]Item, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ordered && r.OrderedErr != nil {
		return nil, r.OrderedErr
	}
	items := make([]Item, 0, len(r.order))
	for _, id := range r.order {
		if item := r.items[id]; scope.Matches(item) {
			items = append(items, item)
		}
	}
	if ordered {
		canonicalOrder(items)
	}
	return items, nil
}

func (r *MemoryRepository) Update(_ context.Context, id string, patch Patch) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return Item{}, apperr.ErrNotFound
	}
	patch.Apply(&item)
	r.items[id] = item
	return item, nil
}
