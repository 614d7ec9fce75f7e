// Package catalog implements the marketplace catalog: loading items by scope
// from the document store, resolving their creators and owners, and deriving
// filtered and ordered views for display.
package catalog

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/musicmoon/marketplace/internal/apperr"
	"github.com/musicmoon/marketplace/internal/identity"
)

// Item is a marketplace listing. Creator and Owner are populated by the
// engine when the references resolve and are never persisted.
type Item struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Price       float64            `json:"price"`
	Category    string             `json:"category"`
	CreatorID   string             `json:"creatorId"`
	OwnerID     string             `json:"ownerId"`
	ImageURL    string             `json:"imageUrl"`
	AudioURL    string             `json:"audioUrl"`
	MintAddress string             `json:"mintAddress,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	Creator     *identity.Identity `json:"creator,omitempty"`
	Owner       *identity.Identity `json:"owner,omitempty"`
}

// Validate rejects records the rest of the catalog cannot work with.
func (i Item) Validate() error {
	switch {
	case i.ID == "":
		return fmt.Errorf("%w: item id is empty", apperr.ErrValidationFailed)
	case strings.TrimSpace(i.Title) == "":
		return fmt.Errorf("%w: item %s has no title", apperr.ErrValidationFailed, i.ID)
	case math.IsNaN(i.Price) || math.IsInf(i.Price, 0) || i.Price < 0:
		return fmt.Errorf("%w: item %s has invalid price %v", apperr.ErrValidationFailed, i.ID, i.Price)
	case i.CreatorID == "" || i.OwnerID == "":
		return fmt.Errorf("%w: item %s is missing creator or owner", apperr.ErrValidationFailed, i.ID)
	case i.CreatedAt.IsZero():
		return fmt.Errorf("%w: item %s has no creation time", apperr.ErrValidationFailed, i.ID)
	}
	return nil
}

// CreatorName returns the resolved creator's display name.
func (i Item) CreatorName() (string, bool) {
	if i.Creator == nil {
		return "", false
	}
	return i.Creator.Name, true
}

// Patch lists the stored item fields an update may touch. Nil means unchanged.
// CreatorID and CreatedAt are immutable.
type Patch struct {
	Title       *string
	Description *string
	Price       *float64
	Category    *string
	MintAddress *string
	OwnerID     *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Price == nil &&
		p.Category == nil && p.MintAddress == nil && p.OwnerID == nil
}

// Apply merges the patch into i.
func (p Patch) Apply(i *Item) {
	if p.Title != nil {
		i.Title = *p.Title
	}
	if p.Description != nil {
		i.Description = *p.Description
	}
	if p.Price != nil {
		i.Price = *p.Price
	}
	if p.Category != nil {
		i.Category = *p.Category
	}
	if p.MintAddress != nil {
		i.MintAddress = *p.MintAddress
	}
	if p.OwnerID != nil {
		i.OwnerID = *p.OwnerID
	}
}

// Categories is the list offered by the mint form.
var Categories = []string{
	"Electronic", "Hip-Hop", "Pop", "Rock", "Ambient", "Classical",
	"Jazz", "R&B", "Lo-Fi", "Dance", "Other",
}

// KnownCategory reports whether c is one of Categories.
func KnownCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

// ScopeKind selects which subset of items a load fetches.
type ScopeKind string

const (
	ScopeAll      ScopeKind = "all"
	ScopeCategory ScopeKind = "category"
	ScopeOwner    ScopeKind = "owner"
	ScopeCreator  ScopeKind = "creator"
)

// Scope parameterizes a catalog load.
type Scope struct {
	Kind  ScopeKind
	Value string
}

// All selects every item.
func All() Scope { return Scope{Kind: ScopeAll} }

// InCategory selects items whose category equals category exactly.
func InCategory(category string) Scope { return Scope{Kind: ScopeCategory, Value: category} }

// OwnedBy selects items owned by the identity.
func OwnedBy(identityID string) Scope { return Scope{Kind: ScopeOwner, Value: identityID} }

// CreatedBy selects items created by the identity.
func CreatedBy(identityID string) Scope { return Scope{Kind: ScopeCreator, Value: identityID} }

// ParseScope builds a scope from its textual kind and value.
func ParseScope(kind, value string) (Scope, error) {
	if kind == "" {
		kind = string(ScopeAll)
	}
	s := Scope{Kind: ScopeKind(kind), Value: value}
	if s.Kind == ScopeAll {
		s.Value = ""
	}
	return s, s.Validate()
}

// Validate checks that the scope kind is known and carries a value when needed.
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeAll:
		return nil
	case ScopeCategory, ScopeOwner, ScopeCreator:
		if s.Value == "" {
			return fmt.Errorf("%w: scope %s needs a value", apperr.ErrValidationFailed, s.Kind)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown scope %q", apperr.ErrValidationFailed, s.Kind)
	}
}

// Key identifies the scope in the engine cache.
func (s Scope) Key() string {
	if s.Kind == ScopeAll {
		return string(ScopeAll)
	}
	return string(s.Kind) + ":" + s.Value
}

// Matches reports whether item belongs to the scope.
func (s Scope) Matches(item Item) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeCategory:
		return item.Category == s.Value
	case ScopeOwner:
		return item.OwnerID == s.Value
	case ScopeCreator:
		return item.CreatorID == s.Value
	default:
		return false
	}
}
