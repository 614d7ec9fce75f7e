// Package session owns the identity currently using a client instance and
// mirrors it into a durable local slot so it survives restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/musicmoon/marketplace/internal/apperr"
	"github.com/musicmoon/marketplace/internal/identity"
	"github.com/musicmoon/marketplace/internal/logging"
	"github.com/musicmoon/marketplace/internal/notification"
)

// State is the lifecycle label of a session.
type State string

const (
	Anonymous     State = "anonymous"
	Authenticated State = "authenticated"
)

// Accounts is the identity store the session signs in against.
type Accounts interface {
	Register(ctx context.Context, in identity.RegisterInput) (identity.Identity, error)
	Authenticate(ctx context.Context, email, password string) (identity.Identity, error)
	FindByID(ctx context.Context, id string) (identity.Identity, error)
	UpdateProfile(ctx context.Context, id string, patch identity.ProfilePatch) (identity.Identity, error)
	SetWallet(ctx context.Context, id, address string) (identity.Identity, error)
}

// Config carries the optional collaborators of a Session.
type Config struct {
	Notifier    notification.Notifier
	Logger      *slog.Logger
	CallTimeout time.Duration
	// Reconcile makes Restore re-fetch the persisted identity from the store.
	Reconcile bool
}

// Session is the single writer of the current identity and its slot. The
// in-memory copy is replaced under the same lock as the slot write and only
// after that write succeeded.
type Session struct {
	accounts  Accounts
	slot      Slot
	notifier  notification.Notifier
	logger    *slog.Logger
	timeout   time.Duration
	reconcile bool

	mu      sync.RWMutex
	current *identity.Identity
}

// New builds an anonymous session. Call Restore to pick up a persisted identity.
func New(accounts Accounts, slot Slot, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Session{
		accounts:  accounts,
		slot:      slot,
		notifier:  cfg.Notifier,
		logger:    logger,
		timeout:   cfg.CallTimeout,
		reconcile: cfg.Reconcile,
	}
}

// Current returns a copy of the current identity.
func (s *Session) Current() (identity.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return identity.Identity{}, false
	}
	return *s.current, true
}

// State reports whether an identity is signed in.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Anonymous
	}
	return Authenticated
}

// SignUp registers a new identity and makes it current.
func (s *Session) SignUp(ctx context.Context, in identity.RegisterInput) (identity.Identity, error) {
	const action = "Sign up"
	callCtx, cancel := s.callContext(ctx)
	user, err := s.accounts.Register(callCtx, in)
	cancel()
	if err != nil {
		return identity.Identity{}, s.fail(ctx, action, err)
	}
	if err := s.commit(ctx, user); err != nil {
		return identity.Identity{}, s.fail(ctx, action, err)
	}
	notification.Notify(ctx, s.notifier, notification.Success(action, fmt.Sprintf("welcome, %s", user.Name)))
	return user, nil
}

// SignIn verifies credentials against the store and makes the identity current.
func (s *Session) SignIn(ctx context.Context, email, password string) (identity.Identity, error) {
	const action = "Sign in"
	callCtx, cancel := s.callContext(ctx)
	user, err := s.accounts.Authenticate(callCtx, email, password)
	cancel()
	if err != nil {
		return identity.Identity{}, s.fail(ctx, action, err)
	}
	if err := s.commit(ctx, user); err != nil {
		return identity.Identity{}, s.fail(ctx, action, err)
	}
	notification.Notify(ctx, s.notifier, notification.Success(action, fmt.Sprintf("signed in as %s", user.Email)))
	return user, nil
}

// SignOut clears the current identity and its slot entry. A slot that cannot
// be cleared is logged and the in-memory identity is dropped regardless.
func (s *Session) SignOut(ctx context.Context) {
	s.mu.Lock()
	s.current = nil
	s.discard(ctx)
	s.mu.Unlock()
	notification.Notify(ctx, s.notifier, notification.Success("Sign out", "signed out"))
}

// ConnectWallet stores address on the current identity. An empty address
// disconnects the wallet. Without a current identity it does nothing.
func (s *Session) ConnectWallet(ctx context.Context, address string) (identity.Identity, error) {
	current, ok := s.Current()
	if !ok {
		return identity.Identity{}, nil
	}
	action, body := "Connect wallet", "wallet connected"
	if address == "" {
		action, body = "Disconnect wallet", "wallet disconnected"
	}

	callCtx, cancel := s.callContext(ctx)
	user, err := s.accounts.SetWallet(callCtx, current.ID, address)
	cancel()
	if err != nil {
		return identity.Identity{}, s.fail(ctx, action, err)
	}
	if err := s.refresh(ctx, user); err != nil {
		return identity.Identity{}, s.fail(ctx, action, err)
	}
	notification.Notify(ctx, s.notifier, notification.Success(action, body))
	return user, nil
}

// UpdateProfile merges the editable profile fields into the current identity.
// Without a current identity it does nothing.
func (s *Session) UpdateProfile(ctx context.Context, patch identity.ProfilePatch) (identity.Identity, error) {
	const action = "Update profile"
	current, ok := s.Current()
	if !ok {
		return identity.Identity{}, nil
	}

	callCtx, cancel := s.callContext(ctx)
	user, err := s.accounts.UpdateProfile(callCtx, current.ID, patch)
	cancel()
	if err != nil {
		return identity.Identity{}, s.fail(ctx, action, err)
	}
	if err := s.refresh(ctx, user); err != nil {
		return identity.Identity{}, s.fail(ctx, action, err)
	}
	notification.Notify(ctx, s.notifier, notification.Success(action, "profile updated"))
	return user, nil
}

// Restore loads the persisted identity, if any, and makes it current. The
// payload is trusted unless reconciliation is enabled. An unreadable payload
// is discarded and leaves the session anonymous.
func (s *Session) Restore(ctx context.Context) (State, error) {
	raw, ok, err := s.slot.Get(ctx, SlotKey)
	if err != nil {
		return Anonymous, fmt.Errorf("read session slot: %w", err)
	}
	if !ok {
		return Anonymous, nil
	}

	var user identity.Identity
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.Validate() != nil {
		s.logger.Warn("discarding unreadable session payload", slog.Any("error", err))
		s.discard(ctx)
		return Anonymous, nil
	}

	if s.reconcile {
		callCtx, cancel := s.callContext(ctx)
		fresh, err := s.accounts.FindByID(callCtx, user.ID)
		cancel()
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			s.logger.Info("persisted identity no longer exists", slog.String("identity_id", user.ID))
			s.discard(ctx)
			return Anonymous, nil
		case err != nil:
			return Anonymous, err
		}
		if err := s.commit(ctx, fresh); err != nil {
			return Anonymous, err
		}
		return Authenticated, nil
	}

	s.mu.Lock()
	s.current = &user
	s.mu.Unlock()
	return Authenticated, nil
}

// commit persists user to the slot and makes it current as one step.
func (s *Session) commit(ctx context.Context, user identity.Identity) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(ctx, user, payload)
}

// refresh is commit for in-place edits: it only applies while user is still
// the current identity, so an edit finishing after a sign-out cannot revive it.
func (s *Session) refresh(ctx context.Context, user identity.Identity) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.ID != user.ID {
		return nil
	}
	return s.store(ctx, user, payload)
}

func (s *Session) store(ctx context.Context, user identity.Identity, payload []byte) error {
	if err := s.slot.Set(ctx, SlotKey, string(payload)); err != nil {
		return fmt.Errorf("%w: persist session: %w", apperr.ErrStoreFailed, err)
	}
	s.current = &user
	return nil
}

func (s *Session) discard(ctx context.Context) {
	if err := s.slot.Remove(ctx, SlotKey); err != nil {
		s.logger.Error("clear session slot", slog.Any("error", err))
	}
}

func (s *Session) fail(ctx context.Context, action string, err error) error {
	notification.Notify(ctx, s.notifier, notification.Failure(action, err))
	return err
}

func (s *Session) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
