package identity

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/musicmoon/marketplace/internal/apperr"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Me returns the authenticated identity.
func (h *Handler) Me(c *fiber.Ctx) error {
	id, _ := c.Locals(IdentityIDLocal).(string)
	if id == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	user, err := h.service.FindByID(c.UserContext(), id)
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(user)
}

// UpdateMe merges the editable profile fields into the authenticated identity.
func (h *Handler) UpdateMe(c *fiber.Ctx) error {
	id, _ := c.Locals(IdentityIDLocal).(string)
	if id == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var patch ProfilePatch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.UpdateProfile(c.UserContext(), id, patch)
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(user)
}
