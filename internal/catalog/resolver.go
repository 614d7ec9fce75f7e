package catalog

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/musicmoon/marketplace/internal/apperr"
	"github.com/musicmoon/marketplace/internal/identity"
)

// IdentityFinder looks identities up by identifier.
type IdentityFinder interface {
	FindByID(ctx context.Context, id string) (identity.Identity, error)
}

// Resolver attaches creator and owner identities to items. Every distinct
// reference is looked up once, concurrently. A missing identity leaves the
// reference unresolved; any other lookup error fails the whole batch.
type Resolver struct {
	identities IdentityFinder
	limit      int
}

// NewResolver builds a resolver. limit bounds concurrent lookups; zero or
// less means unbounded.
func NewResolver(identities IdentityFinder, limit int) *Resolver {
	return &Resolver{identities: identities, limit: limit}
}

// Resolve returns a copy of items with Creator and Owner populated.
func (r *Resolver) Resolve(ctx context.Context, items []Item) ([]Item, error) {
	if r == nil || r.identities == nil || len(items) == 0 {
		return items, nil
	}

	ids := make([]string, 0, len(items)*2)
	seen := make(map[string]struct{}, len(items)*2)
	for _, item := range items {
		for _, id := range []string{item.CreatorID, item.OwnerID} {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	found := make([]*identity.Identity, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			user, err := r.identities.FindByID(gctx, id)
			switch {
			case err == nil:
				found[i] = &user
				return nil
			case errors.Is(err, apperr.ErrNotFound):
				return nil
			default:
				return fmt.Errorf("resolve identity %s: %w", id, err)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]*identity.Identity, len(ids))
	for i, id := range ids {
		if found[i] != nil {
			byID[id] = found[i]
		}
	}
	out := make([]Item, len(items))
	for i, item := range items {
		item.Creator = byID[item.CreatorID]
		item.Owner = byID[item.OwnerID]
		out[i] = item
	}
	return out, nil
}
