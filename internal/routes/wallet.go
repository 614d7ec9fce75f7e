package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/musicmoon/marketplace/internal/wallet"
)

// RegisterWalletRoutes wires the wallet endpoint of the authenticated identity.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Put("/me/wallet", h.Connect)
}
