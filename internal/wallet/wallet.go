// Package wallet bridges an external wallet connector and the identity's
// stored wallet address.
package wallet

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mr-tron/base58"

	"github.com/musicmoon/marketplace/internal/apperr"
	"github.com/musicmoon/marketplace/internal/identity"
)

// publicKeyLen is the size of an ed25519 public key.
const publicKeyLen = 32

// ValidateAddress checks that address is a base58 encoded public key.
func ValidateAddress(address string) error {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != publicKeyLen {
		return fmt.Errorf("%w: %q is not a wallet address", apperr.ErrValidationFailed, address)
	}
	return nil
}

// Connector exposes the wallet currently connected in the client, if any.
type Connector interface {
	Address(ctx context.Context) (string, bool)
	Disconnect(ctx context.Context) error
}

// StaticConnector reports a fixed address until disconnected. The CLI uses it
// for an address passed on the command line.
type StaticConnector struct {
	mu      sync.Mutex
	address string
}

// NewStaticConnector builds a connector holding address.
func NewStaticConnector(address string) *StaticConnector {
	return &StaticConnector{address: strings.TrimSpace(address)}
}

func (s *StaticConnector) Address(context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address, s.address != ""
}

func (s *StaticConnector) Disconnect(context.Context) error {
	s.mu.Lock()
	s.address = ""
	s.mu.Unlock()
	return nil
}

// Binder stores a wallet address on the current identity. An empty address
// clears it.
type Binder interface {
	ConnectWallet(ctx context.Context, address string) (identity.Identity, error)
}

// Mirror copies the connector's address into the binder. With nothing
// connected it leaves the identity untouched.
func Mirror(ctx context.Context, conn Connector, binder Binder) (identity.Identity, error) {
	address, ok := conn.Address(ctx)
	if !ok {
		return identity.Identity{}, nil
	}
	if err := ValidateAddress(address); err != nil {
		return identity.Identity{}, err
	}
	return binder.ConnectWallet(ctx, address)
}

// Disconnect disconnects the wallet and clears the stored address.
func Disconnect(ctx context.Context, conn Connector, binder Binder) (identity.Identity, error) {
	if err := conn.Disconnect(ctx); err != nil {
		return identity.Identity{}, fmt.Errorf("disconnect wallet: %w", err)
	}
	return binder.ConnectWallet(ctx, "")
}
