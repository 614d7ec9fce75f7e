package wallet

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/musicmoon/marketplace/internal/apperr"
	"github.com/musicmoon/marketplace/internal/identity"
)

// Store persists wallet addresses on identities.
type Store interface {
	SetWallet(ctx context.Context, id, address string) (identity.Identity, error)
}

// Handler exposes the wallet endpoint of the authenticated identity.
type Handler struct {
	store Store
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type connectRequest struct {
	Address string `json:"address"`
}

// Connect stores the connected wallet address. An empty address disconnects.
func (h *Handler) Connect(c *fiber.Ctx) error {
	id, _ := c.Locals(identity.IdentityIDLocal).(string)
	if id == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req connectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	address := strings.TrimSpace(req.Address)
	if address != "" {
		if err := ValidateAddress(address); err != nil {
			return fiber.NewError(apperr.Status(err), err.Error())
		}
	}
	user, err := h.store.SetWallet(c.UserContext(), id, address)
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(user)
}
