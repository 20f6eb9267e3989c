package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuth guards administrative routes with a static bearer token whose
// bcrypt hash is configured. An empty hash rejects every request.
func AdminAuth(tokenHash string) fiber.Handler {
	hash := []byte(tokenHash)
	return func(c *fiber.Ctx) error {
		if len(hash) == 0 {
			return fiber.NewError(http.StatusForbidden, "admin access is not configured")
		}
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])
		if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		c.Locals("admin", true)
		return c.Next()
	}
}
