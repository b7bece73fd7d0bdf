package middleware

import (
	"strings"

	"office-chat/config"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

func JWT() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			JWTAlg: "HS512",
			Key:    []byte(config.Config("JWT_ACCESS_KEY")),
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			message := "Invalid or expired JWT"
			if strings.EqualFold(err.Error(), "missing or malformed JWT") {
				message = "Missing or malformed JWT"
			}
			return c.Status(fiber.StatusUnauthorized).
				JSON(fiber.Map{
					"status":  "error",
					"message": message,
					"data":    nil,
				})
		},
	})
}
