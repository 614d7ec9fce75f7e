package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/musicmoon/marketplace/internal/apperr"
)

const (
	minPasswordLen = 6
	// bcrypt ignores input past 72 bytes.
	maxPasswordLen = 72
	avatarBaseURL  = "https://api.dicebear.com/7.x/shapes/svg?seed="
)

// Service manages identity lifecycle on top of the document store.
type Service struct {
	repo     Repository
	hashCost int
	timeout  time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithCallTimeout bounds every repository call. Zero leaves calls unbounded.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// NewService creates a new identity service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, hashCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeEmail trims and lower-cases an email so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an identity after checking that no other identity uses
// the email. The check is a plain lookup; two concurrent registrations can
// still race, in which case the store's own uniqueness error surfaces as
// ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Identity, error) {
	email := NormalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return Identity{}, fmt.Errorf("%w: invalid email %q", apperr.ErrValidationFailed, in.Email)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Identity{}, fmt.Errorf("%w: name is required", apperr.ErrValidationFailed)
	}
	if len(in.Password) < minPasswordLen || len(in.Password) > maxPasswordLen {
		return Identity{}, fmt.Errorf("%w: password must be %d to %d characters", apperr.ErrValidationFailed, minPasswordLen, maxPasswordLen)
	}

	callCtx, cancel := s.callContext(ctx)
	_, err := s.repo.FindByEmail(callCtx, email)
	cancel()
	switch {
	case err == nil:
		return Identity{}, fmt.Errorf("email %s: %w", email, apperr.ErrAlreadyExists)
	case !errors.Is(err, apperr.ErrNotFound):
		return Identity{}, fmt.Errorf("%w: lookup email: %w", apperr.ErrFetchFailed, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return Identity{}, err
	}

	callCtx, cancel = s.callContext(ctx)
	defer cancel()
	created, err := s.repo.Create(callCtx, Identity{
		Email:        email,
		Name:         name,
		Phone:        strings.TrimSpace(in.Phone),
		ProfileImage: avatarBaseURL + url.QueryEscape(email),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return Identity{}, err
		}
		return Identity{}, fmt.Errorf("%w: create identity: %w", apperr.ErrStoreFailed, err)
	}
	return created, nil
}

// Authenticate looks the identity up by email and verifies the password
// against the stored bcrypt hash.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	callCtx, cancel := s.callContext(ctx)
	identity, err := s.repo.FindByEmail(callCtx, NormalizeEmail(email))
	cancel()
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Identity{}, fmt.Errorf("identity %s: %w", email, apperr.ErrNotFound)
		}
		return Identity{}, fmt.Errorf("%w: lookup email: %w", apperr.ErrFetchFailed, err)
	}
	if len(identity.PasswordHash) == 0 {
		return Identity{}, apperr.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(identity.PasswordHash, []byte(password)); err != nil {
		return Identity{}, apperr.ErrUnauthorized
	}
	return identity, nil
}

// FindByID returns the identity with id.
func (s *Service) FindByID(ctx context.Context, id string) (Identity, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	identity, err := s.repo.FindByID(callCtx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Identity{}, fmt.Errorf("identity %s: %w", id, apperr.ErrNotFound)
		}
		return Identity{}, fmt.Errorf("%w: identity %s: %w", apperr.ErrFetchFailed, id, err)
	}
	if err := identity.Validate(); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// UpdateProfile merges the whitelisted profile fields into the identity.
func (s *Service) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (Identity, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return Identity{}, fmt.Errorf("%w: name cannot be empty", apperr.ErrValidationFailed)
		}
		patch.Name = &name
	}
	p := patch.Patch()
	if p.Empty() {
		return s.FindByID(ctx, id)
	}
	return s.update(ctx, id, p)
}

// SetWallet stores the connected wallet address. An empty address clears it.
func (s *Service) SetWallet(ctx context.Context, id, address string) (Identity, error) {
	address = strings.TrimSpace(address)
	return s.update(ctx, id, Patch{WalletAddress: &address})
}

func (s *Service) update(ctx context.Context, id string, patch Patch) (Identity, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	identity, err := s.repo.Update(callCtx, id, patch)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Identity{}, fmt.Errorf("identity %s: %w", id, apperr.ErrNotFound)
		}
		return Identity{}, fmt.Errorf("%w: update identity %s: %w", apperr.ErrStoreFailed, id, err)
	}
	return identity, nil
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
