package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/musicmoon/marketplace/internal/catalog"
)

// RegisterCatalogRoutes wires the public catalog reads.
func RegisterCatalogRoutes(r fiber.Router, h *catalog.Handler) {
	r.Get("/items", h.List)
	r.Get("/items/categories", h.Categories)
	r.Get("/items/presets", h.Presets)
	r.Get("/items/:id", h.Get)
}

// RegisterCatalogMutationRoutes wires the authenticated item mutations. Mint
// runs behind the idempotency middleware.
func RegisterCatalogMutationRoutes(r fiber.Router, h *catalog.Handler, idempotency fiber.Handler) {
	if idempotency != nil {
		r.Post("/items", idempotency, h.Mint)
	} else {
		r.Post("/items", h.Mint)
	}
	r.Patch("/items/:id", h.Update)
	r.Post("/items/:id/transfer", h.Transfer)
}
