package middleware

import (
	"log/slog"

	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
)

// RBAC enforces the caller's role against the route path and method.
func RBAC(enforcer casbin.IEnforcer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := CurrentIdentity(c)
		if identity == nil {
			return unauthorized(c, "Missing or malformed JWT")
		}

		// Casbin enforces policy
		accepted, err := enforcer.Enforce(identity.Role, c.Path(), c.Method())
		if err != nil {
			slog.Error("rbac enforce failed", "error", err, "path", c.Path())
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Internal server error",
				"data":    nil,
			})
		}

		if !accepted {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status":  "error",
				"message": "Forbidden",
				"data":    nil,
			})
		}

		return c.Next()
	}
}
