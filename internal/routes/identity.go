package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/musicmoon/marketplace/internal/identity"
)

// RegisterIdentityRoutes wires the profile endpoints of the authenticated identity.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Get("/me", h.Me)
	r.Patch("/me", h.UpdateMe)
}
