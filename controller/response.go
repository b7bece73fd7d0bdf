package controller

import (
	"errors"
	"log/slog"

	"office-chat/attachment"
	"office-chat/chat"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func success(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "success",
		"message": nil,
		"data":    data,
	})
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"data":    nil,
	})
}

// bind decodes the request body into input and validates it.
func bind(c *fiber.Ctx, input any) error {
	if err := c.BodyParser(input); err != nil {
		return err
	}
	return validate.Struct(input)
}

func paramID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

// serviceError maps a chat or attachment error onto the response envelope.
func serviceError(c *fiber.Ctx, logger *slog.Logger, err error) error {
	switch {
	case errors.Is(err, chat.ErrUnauthenticated):
		return failure(c, fiber.StatusUnauthorized, "Unauthenticated")
	case errors.Is(err, chat.ErrForbidden):
		return failure(c, fiber.StatusForbidden, "Forbidden")
	case errors.Is(err, chat.ErrInvalidArgument):
		return failure(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrNotFound), errors.Is(err, attachment.ErrNotFound):
		return failure(c, fiber.StatusNotFound, "Not found")
	case errors.Is(err, chat.ErrConflict):
		return failure(c, fiber.StatusConflict, "Conflict")
	case errors.Is(err, attachment.ErrEmpty), errors.Is(err, attachment.ErrTooLarge), errors.Is(err, attachment.ErrUnsupportedType):
		return failure(c, fiber.StatusBadRequest, err.Error())
	}

	logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return failure(c, fiber.StatusInternalServerError, "Internal server error")
}
