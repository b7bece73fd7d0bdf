package controller

import (
	"fmt"
	"io"

	"office-chat/attachment"

	"github.com/gofiber/fiber/v2"
)

func (h *Chat) UploadAttachment(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return failure(c, fiber.StatusBadRequest, "File is required")
	}
	if header.Size > attachment.MaxSize {
		return failure(c, fiber.StatusBadRequest, attachment.ErrTooLarge.Error())
	}

	file, err := header.Open()
	if err != nil {
		return serviceError(c, h.logger, fmt.Errorf("open upload: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, attachment.MaxSize+1))
	if err != nil {
		return serviceError(c, h.logger, fmt.Errorf("read upload: %w", err))
	}

	stored, err := h.attachments.Upload(c.UserContext(), header.Filename, data)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return success(c, fiber.StatusCreated, stored)
}

// DownloadAttachment serves attachments kept in the database.
func (h *Chat) DownloadAttachment(c *fiber.Ctx) error {
	if h.files == nil {
		return failure(c, fiber.StatusNotFound, "Not found")
	}

	file, err := h.files.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentType, file.MediaType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", file.Name))
	return c.Send(file.Data)
}
