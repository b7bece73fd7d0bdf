package middleware

import (
	"office-chat/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const identityKey = "identity"

// Identity resolves the verified JWT into a utils.Identity. Tokens still
// waiting for the second factor are refused.
func Identity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("user").(*jwt.Token)
		if !ok {
			return unauthorized(c, "Missing or malformed JWT")
		}
		claims, ok := user.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c, "Invalid or expired JWT")
		}

		identity, err := utils.ParseIdentity(claims)
		if err != nil {
			return unauthorized(c, "Invalid or expired JWT")
		}
		if identity.Otp {
			return unauthorized(c, "2FA required")
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// CurrentIdentity returns the identity stored by Identity, or nil.
func CurrentIdentity(c *fiber.Ctx) *utils.Identity {
	identity, _ := c.Locals(identityKey).(*utils.Identity)
	return identity
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"data":    nil,
	})
}
