package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/scantrail/scantrail/internal/auth"
	"go.uber.org/zap"
)

const ownerIDKey = "owner_id"

// RequireAuth resolves the request's owner identity from a Bearer token and
// rejects the request with 401 when none can be resolved. It is the only
// place the auth collaborator is consulted.
func RequireAuth(manager *auth.Manager, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer token",
			})
		}

		ownerID, err := manager.Resolve(token)
		if err != nil {
			logger.Debug("rejected access token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}

		c.Locals(ownerIDKey, ownerID)
		return c.Next()
	}
}

// OwnerID returns the owner identity resolved by RequireAuth.
func OwnerID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(ownerIDKey).(uuid.UUID)
	return id, ok
}
