package listener

import (
	"context"
	"encoding/json"
	"log/slog"

	"office-chat/chat"
	"office-chat/event"
)

type SystemSender interface {
	SendSystem(ctx context.Context, conversationID uint, text string) (*chat.Message, error)
}

// System consumes commands for the chat service until events closes or ctx ends.
func System(ctx context.Context, events <-chan event.Event, sender SystemSender, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			Handle(ctx, ev, sender, logger)
		}
	}
}

// Handle runs a single command. Unknown actions and bad payloads are logged and dropped.
func Handle(ctx context.Context, ev event.Event, sender SystemSender, logger *slog.Logger) {
	switch ev.Action {
	case chat.ActionSystemMessage:
		var cmd chat.SystemMessageCommand
		if err := json.Unmarshal(ev.Data, &cmd); err != nil {
			logger.Warn("malformed system message command", "error", err)
			return
		}
		msg, err := sender.SendSystem(ctx, cmd.ConversationID, cmd.Text)
		if err != nil {
			logger.Warn("system message command failed", "conversation", cmd.ConversationID, "error", err)
			return
		}
		logger.Info("system message sent", "conversation", cmd.ConversationID, "message", msg.ID)
	default:
		logger.Debug("ignoring event", "action", ev.Action)
	}
}
