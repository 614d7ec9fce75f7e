package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/musicmoon/marketplace/internal/auth"
)

// RegisterAuthRoutes wires sign-up and sign-in endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/signup", h.SignUp)
	if rateLimiter != nil {
		group.Post("/signin", rateLimiter, h.SignIn)
	} else {
		group.Post("/signin", h.SignIn)
	}
}
