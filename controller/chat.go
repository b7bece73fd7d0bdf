package controller

import (
	"log/slog"

	"office-chat/attachment"
	"office-chat/chat"
	"office-chat/middleware"

	"github.com/gofiber/fiber/v2"
)

type DirectConversationInput struct {
	TargetUserID uint `json:"targetUserId" validate:"required"`
}

type CreateConversationInput struct {
	Name    string `json:"name" validate:"required,max=120"`
	Kind    string `json:"kind" validate:"required,oneof=direct group"`
	Members []uint `json:"members" validate:"max=500"`
}

type MarkReadInput struct {
	ConversationID uint `json:"conversationId" validate:"required"`
}

type AddMemberInput struct {
	UserID uint `json:"userId" validate:"required"`
}

type SystemMessageInput struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// Chat serves the conversation API.
type Chat struct {
	service     *chat.Service
	protocol    *chat.Protocol
	attachments *attachment.Service
	files       *attachment.DBStore
	logger      *slog.Logger
}

// NewChat wires the handlers. files may be nil when attachments live outside the database.
func NewChat(service *chat.Service, protocol *chat.Protocol, attachments *attachment.Service, files *attachment.DBStore, logger *slog.Logger) *Chat {
	return &Chat{
		service:     service,
		protocol:    protocol,
		attachments: attachments,
		files:       files,
		logger:      logger,
	}
}

func (h *Chat) ListConversations(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)

	conversations, err := h.service.ListConversations(c.UserContext(), identity.ID)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return success(c, fiber.StatusOK, conversations)
}

func (h *Chat) ListMessages(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)
	conversationID, ok := paramID(c)
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid conversation id")
	}

	messages, err := h.service.ListMessages(c.UserContext(), conversationID, identity.ID)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return success(c, fiber.StatusOK, messages)
}

func (h *Chat) DirectConversation(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)
	input := new(DirectConversationInput)
	if err := bind(c, input); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}

	conversationID, err := h.service.GetOrCreateDirect(c.UserContext(), identity.ID, input.TargetUserID)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{"conversationId": conversationID})
}

func (h *Chat) CreateConversation(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)
	input := new(CreateConversationInput)
	if err := bind(c, input); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}

	summary, err := h.service.CreateConversation(c.UserContext(), identity.ID, input.Name, input.Kind, input.Members)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return success(c, fiber.StatusCreated, summary)
}

func (h *Chat) MarkRead(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)
	input := new(MarkReadInput)
	if err := bind(c, input); err != nil {
		return failure(c, fiber.StatusBadRequest, "Conversation id is required")
	}

	updated, err := h.service.MarkRead(c.UserContext(), input.ConversationID, identity.ID)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{"success": true, "updated": updated})
}

func (h *Chat) AddMember(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)
	conversationID, ok := paramID(c)
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid conversation id")
	}
	input := new(AddMemberInput)
	if err := bind(c, input); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}

	added, err := h.service.AddMember(c.UserContext(), conversationID, identity.ID, input.UserID)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{"added": added})
}

func (h *Chat) ListUsers(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)

	users, err := h.service.ListUsers(c.UserContext(), identity.ID)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return success(c, fiber.StatusOK, users)
}
