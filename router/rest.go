package router

import (
	"office-chat/controller"
	"office-chat/middleware"

	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func Rest(app *fiber.App, handlers *controller.Chat, enforcer casbin.IEnforcer) {
	app.Get("/health", controller.Health)

	api := app.Group("/v1", logger.New(), middleware.JWT(), middleware.Identity(), middleware.RBAC(enforcer))

	// Chat
	chat := api.Group("/chat")
	chat.Get("/conversations", handlers.ListConversations)
	chat.Post("/conversations", handlers.CreateConversation)
	chat.Get("/conversations/:id/messages", handlers.ListMessages)
	chat.Post("/conversations/:id/members", handlers.AddMember)
	chat.Post("/dm", handlers.DirectConversation)
	chat.Post("/mark-read", handlers.MarkRead)
	chat.Get("/users", handlers.ListUsers)
	chat.Post("/attachments", handlers.UploadAttachment)
	chat.Get("/attachments/:id", handlers.DownloadAttachment)

	// Admin
	admin := api.Group("/admin")
	admin.Post("/chat/conversations/:id/system-messages", handlers.SystemMessage)
}
