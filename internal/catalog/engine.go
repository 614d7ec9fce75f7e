package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/musicmoon/marketplace/internal/apperr"
	"github.com/musicmoon/marketplace/internal/logging"
	"github.com/musicmoon/marketplace/internal/notification"
)

// Load outcomes reported to the Observer.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Observer receives load outcomes, typically to feed metrics.
type Observer interface {
	ObserveLoad(scope ScopeKind, outcome string, elapsed time.Duration)
}

// EngineConfig carries the optional collaborators of an Engine.
type EngineConfig struct {
	Notifier    notification.Notifier
	Logger      *slog.Logger
	Observer    Observer
	CallTimeout time.Duration
}

// Engine loads items from the store, resolves their identities and keeps the
// last successful list per scope so views can re-derive filtered and sorted
// output without another fetch.
type Engine struct {
	repo     Repository
	resolver *Resolver
	notifier notification.Notifier
	logger   *slog.Logger
	observer Observer
	timeout  time.Duration

	mu    sync.RWMutex
	cache map[string][]Item
}

// NewEngine builds a catalog engine over repo. resolver may be nil, in which
// case items are returned with unresolved references.
func NewEngine(repo Repository, resolver *Resolver, cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{
		repo:     repo,
		resolver: resolver,
		notifier: cfg.Notifier,
		logger:   logger,
		observer: cfg.Observer,
		timeout:  cfg.CallTimeout,
		cache:    make(map[string][]Item),
	}
}

// Load fetches the items in scope. The ordered store query is tried first;
// when it fails the unordered query is used instead. Both paths return the
// same canonical order. On failure the cached list for scope is untouched.
func (e *Engine) Load(ctx context.Context, scope Scope) ([]Item, error) {
	const action = "Load items"
	start := time.Now()

	if err := scope.Validate(); err != nil {
		notification.Notify(ctx, e.notifier, notification.Failure(action, err))
		return nil, err
	}

	outcome := OutcomeOK
	items, err := e.list(ctx, scope, true)
	if err != nil {
		e.logger.Warn("ordered catalog query failed, using unordered query",
			slog.String("scope", scope.Key()),
			slog.Any("error", err),
		)
		outcome = OutcomeFallback
		items, err = e.list(ctx, scope, false)
	}
	if err != nil {
		return nil, e.loadFailed(ctx, action, scope, start, fmt.Errorf("%w: list %s: %v", apperr.ErrFetchFailed, scope.Key(), err))
	}

	items = e.accept(items)
	canonicalOrder(items)

	items, err = e.resolve(ctx, items)
	if err != nil {
		return nil, e.loadFailed(ctx, action, scope, start, err)
	}

	e.mu.Lock()
	e.cache[scope.Key()] = items
	e.mu.Unlock()

	e.observe(scope, outcome, start)
	return slices.Clone(items), nil
}

// Get fetches a single item with its creator and owner resolved.
func (e *Engine) Get(ctx context.Context, id string) (Item, error) {
	const action = "Load item"

	callCtx, cancel := e.callContext(ctx)
	item, err := e.repo.Get(callCtx, id)
	cancel()
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			err = fmt.Errorf("item %s: %w", id, apperr.ErrNotFound)
		} else {
			err = fmt.Errorf("%w: item %s: %v", apperr.ErrFetchFailed, id, err)
		}
		notification.Notify(ctx, e.notifier, notification.Failure(action, err))
		return Item{}, err
	}
	if err := item.Validate(); err != nil {
		notification.Notify(ctx, e.notifier, notification.Failure(action, err))
		return Item{}, err
	}

	resolved, err := e.resolve(ctx, []Item{item})
	if err != nil {
		notification.Notify(ctx, e.notifier, notification.Failure(action, err))
		return Item{}, err
	}
	return resolved[0], nil
}

// Cached returns the last successfully loaded list for scope.
func (e *Engine) Cached(scope Scope) ([]Item, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	items, ok := e.cache[scope.Key()]
	if !ok {
		return nil, false
	}
	return slices.Clone(items), true
}

// View filters and sorts the cached list for scope. It reports NotFound when
// scope has not been loaded yet.
func (e *Engine) View(scope Scope, params FilterParams, key SortKey) ([]Item, error) {
	items, ok := e.Cached(scope)
	if !ok {
		return nil, fmt.Errorf("scope %s not loaded: %w", scope.Key(), apperr.ErrNotFound)
	}
	return Sort(Filter(items, params), key)
}

// Invalidate drops the cached list for scope.
func (e *Engine) Invalidate(scope Scope) {
	e.mu.Lock()
	delete(e.cache, scope.Key())
	e.mu.Unlock()
}

// InvalidateAll drops every cached list.
func (e *Engine) InvalidateAll() {
	e.mu.Lock()
	clear(e.cache)
	e.mu.Unlock()
}

func (e *Engine) list(ctx context.Context, scope Scope, ordered bool) ([]Item, error) {
	callCtx, cancel := e.callContext(ctx)
	defer cancel()
	return e.repo.List(callCtx, scope, ordered)
}

func (e *Engine) resolve(ctx context.Context, items []Item) ([]Item, error) {
	callCtx, cancel := e.callContext(ctx)
	defer cancel()
	resolved, err := e.resolver.Resolve(callCtx, items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrFetchFailed, err)
	}
	return resolved, nil
}

// accept drops records that fail validation at the store boundary.
func (e *Engine) accept(items []Item) []Item {
	return slices.DeleteFunc(items, func(item Item) bool {
		if err := item.Validate(); err != nil {
			e.logger.Warn("skipping malformed item", slog.String("item_id", item.ID), slog.Any("error", err))
			return true
		}
		return false
	})
}

func (e *Engine) loadFailed(ctx context.Context, action string, scope Scope, start time.Time, err error) error {
	e.logger.Error("catalog load failed", slog.String("scope", scope.Key()), slog.Any("error", err))
	e.observe(scope, OutcomeError, start)
	notification.Notify(ctx, e.notifier, notification.Failure(action, err))
	return err
}

func (e *Engine) observe(scope Scope, outcome string, start time.Time) {
	if e.observer != nil {
		e.observer.ObserveLoad(scope.Kind, outcome, time.Since(start))
	}
}

func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, e.timeout)
}

// withTimeout bounds one external call. Zero or negative d leaves it unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
