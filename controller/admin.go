package controller

import (
	"github.com/gofiber/fiber/v2"
)

// SystemMessage posts a message without a sender, e.g. office announcements.
func (h *Chat) SystemMessage(c *fiber.Ctx) error {
	conversationID, ok := paramID(c)
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid conversation id")
	}
	input := new(SystemMessageInput)
	if err := bind(c, input); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}

	msg, err := h.protocol.SendSystem(c.UserContext(), conversationID, input.Text)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return success(c, fiber.StatusCreated, msg)
}

func Health(c *fiber.Ctx) error {
	return success(c, fiber.StatusOK, fiber.Map{"healthy": true})
}
