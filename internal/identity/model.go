package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/musicmoon/marketplace/internal/apperr"
)

// IdentityIDLocal is the fiber locals key carrying the authenticated identity id.
const IdentityIDLocal = "identity_id"

// Identity represents a marketplace account. The JSON shape is what the
// session slot persists, so the password hash never leaves the store.
type Identity struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone,omitempty"`
	WalletAddress string    `json:"walletAddress,omitempty"`
	ProfileImage  string    `json:"profileImage,omitempty"`
	CoverImage    string    `json:"coverImage,omitempty"`
	Bio           string    `json:"bio,omitempty"`
	PasswordHash  []byte    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Validate rejects records missing the fields every identity must carry.
func (i Identity) Validate() error {
	switch {
	case i.ID == "":
		return fmt.Errorf("%w: identity id is empty", apperr.ErrValidationFailed)
	case i.Email == "":
		return fmt.Errorf("%w: identity %s has no email", apperr.ErrValidationFailed, i.ID)
	case strings.TrimSpace(i.Name) == "":
		return fmt.Errorf("%w: identity %s has no name", apperr.ErrValidationFailed, i.ID)
	}
	return nil
}

// Patch lists the stored fields an update may touch. Nil means unchanged.
type Patch struct {
	Name          *string
	Phone         *string
	ProfileImage  *string
	CoverImage    *string
	Bio           *string
	WalletAddress *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Phone == nil && p.ProfileImage == nil &&
		p.CoverImage == nil && p.Bio == nil && p.WalletAddress == nil
}

// Apply merges the patch into i.
func (p Patch) Apply(i *Identity) {
	if p.Name != nil {
		i.Name = *p.Name
	}
	if p.Phone != nil {
		i.Phone = *p.Phone
	}
	if p.ProfileImage != nil {
		i.ProfileImage = *p.ProfileImage
	}
	if p.CoverImage != nil {
		i.CoverImage = *p.CoverImage
	}
	if p.Bio != nil {
		i.Bio = *p.Bio
	}
	if p.WalletAddress != nil {
		i.WalletAddress = *p.WalletAddress
	}
}

// ProfilePatch holds the profile fields a user may edit. id, email and
// createdAt cannot change.
type ProfilePatch struct {
	Name         *string `json:"name,omitempty"`
	ProfileImage *string `json:"profileImage,omitempty"`
	CoverImage   *string `json:"coverImage,omitempty"`
	Bio          *string `json:"bio,omitempty"`
}

// Patch converts the whitelisted fields into a store patch.
func (p ProfilePatch) Patch() Patch {
	return Patch{Name: p.Name, ProfileImage: p.ProfileImage, CoverImage: p.CoverImage, Bio: p.Bio}
}

// RegisterInput carries sign-up data.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}
