package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/musicmoon/marketplace/internal/auth"
	"github.com/musicmoon/marketplace/internal/identity"
)

// JWTAuth validates bearer access tokens and stores the identity id in the
// request locals under identity.IdentityIDLocal.
func JWTAuth(tokens *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := tokens.Parse(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		c.Locals(identity.IdentityIDLocal, claims.Subject)
		return c.Next()
	}
}
