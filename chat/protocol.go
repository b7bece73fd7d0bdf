package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"office-chat/membership"
	"office-chat/model"
	"office-chat/presence"
	"office-chat/store"
)

// Conn is a live push connection of an authenticated user.
type Conn interface {
	membership.Conn
	// Context is cancelled when the connection closes.
	Context() context.Context
	Emit(event string, args ...any)
}

// Pusher delivers events to every connection or to a room.
type Pusher interface {
	Broadcast(event string, args ...any)
	EmitTo(room string, event string, args ...any)
}

// RoomPresence decides the read flag of new messages.
type RoomPresence interface {
	IsAnyoneElsePresent(conversationID, senderID uint) bool
}

type Publisher interface {
	Publish(ctx context.Context, action string, data any) error
}

// Protocol runs the connection lifecycle and message delivery.
type Protocol struct {
	store     *store.Store
	tracker   *presence.Tracker
	router    *membership.Router
	readState RoomPresence
	pusher    Pusher
	events    Publisher
	logger    *slog.Logger
}

func NewProtocol(st *store.Store, tracker *presence.Tracker, router *membership.Router, pusher Pusher, events Publisher, logger *slog.Logger) *Protocol {
	return &Protocol{
		store:     st,
		tracker:   tracker,
		router:    router,
		readState: router,
		pusher:    pusher,
		events:    events,
		logger:    logger,
	}
}

// WithRoomPresence replaces the read-state heuristic.
func (p *Protocol) WithRoomPresence(rp RoomPresence) *Protocol {
	p.readState = rp
	return p
}

// Connect registers conn. user_online goes out only for the user's first connection.
func (p *Protocol) Connect(conn Conn) {
	userID := conn.UserID()
	first, online := p.tracker.Register(userID)
	p.router.Attach(conn)

	if first {
		p.pusher.Broadcast(EventUserOnline, userID)
		p.publish(conn.Context(), ActionUserOnline, PresenceChanged{UserID: userID, Online: true})
	}
	conn.Emit(EventOnlineUsers, online)

	p.logger.Debug("connection registered", "user", userID, "conn", conn.ID(), "first", first)
}

// Disconnect unregisters conn. user_offline goes out only when the user's last connection closes.
func (p *Protocol) Disconnect(conn Conn) {
	userID := conn.UserID()
	p.router.Detach(conn)

	if p.tracker.Unregister(userID) {
		p.pusher.Broadcast(EventUserOffline, userID)
		p.publish(context.Background(), ActionUserOffline, PresenceChanged{UserID: userID, Online: false})
	}

	p.logger.Debug("connection closed", "user", userID, "conn", conn.ID())
}

// Join puts conn in a conversation room. Non-members get join_refused.
func (p *Protocol) Join(conn Conn, arg any) error {
	conversationID, err := DecodeConversationID(arg)
	if err == nil {
		err = p.requireMember(conn.Context(), conversationID, conn.UserID())
	}
	if err != nil {
		p.logger.Warn("join refused", "user", conn.UserID(), "conversation", conversationID, "error", err)
		conn.Emit(EventJoinRefused, JoinRefused{ConversationID: conversationID, Code: Code(err), Message: ErrorMessage(err)})
		return err
	}

	if err := conn.Context().Err(); err != nil {
		return err
	}
	if !p.router.Join(conn, conversationID) {
		p.logger.Debug("join skipped", "user", conn.UserID(), "conversation", conversationID, "conn", conn.ID())
	}
	return nil
}

func (p *Protocol) Leave(conn Conn, arg any) error {
	conversationID, err := DecodeConversationID(arg)
	if err != nil {
		p.logger.Warn("leave ignored", "user", conn.UserID(), "error", err)
		return err
	}

	p.router.Leave(conn, conversationID)
	return nil
}

// Send handles send_message. The sender is always the connection's user.
// The sending connection gets message_ack once the message is stored, or
// message_nack when it is rejected before that.
func (p *Protocol) Send(conn Conn, arg any) (*Message, error) {
	req, err := DecodeSendMessage(arg)
	if err != nil {
		p.nack(conn, req.ClientID, err)
		return nil, err
	}

	senderID := conn.UserID()
	msg, err := p.deliver(conn.Context(), req.ConversationID, &senderID, req.Text, req.Attachment)
	if err != nil {
		p.nack(conn, req.ClientID, err)
		return nil, err
	}

	conn.Emit(EventMessageAck, Ack{ClientID: req.ClientID, MessageID: msg.ID, ConversationID: msg.ConversationID})
	return msg, nil
}

// SendSystem stores and fans out a message without a sender.
func (p *Protocol) SendSystem(ctx context.Context, conversationID uint, text string) (*Message, error) {
	cmd := SystemMessageCommand{ConversationID: conversationID, Text: text}
	if err := validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	if _, err := p.store.GetConversation(ctx, conversationID); err != nil {
		return nil, internal(fmt.Sprintf("conversation %d", conversationID), err)
	}

	msg, err := p.deliver(ctx, conversationID, nil, text, nil)
	if err != nil {
		p.logger.Error("system message failed", "conversation", conversationID, "error", err)
		return nil, err
	}
	return msg, nil
}

func (p *Protocol) deliver(ctx context.Context, conversationID uint, senderID *uint, text string, attachment *AttachmentRef) (*Message, error) {
	row := model.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           text,
	}
	// System messages start unread for every member.
	if senderID != nil {
		if err := p.requireMember(ctx, conversationID, *senderID); err != nil {
			return nil, err
		}
		row.IsRead = p.readState.IsAnyoneElsePresent(conversationID, *senderID)
	}
	if attachment != nil {
		row.AttachmentURL = attachment.URL
		row.AttachmentType = attachment.Type
	}

	if err := p.store.CreateMessage(ctx, &row); err != nil {
		return nil, internal("store message", err)
	}

	msg := toMessage(row, attachment)
	if senderID != nil {
		if sender, err := p.store.GetUser(ctx, *senderID); err == nil {
			msg.SenderName = sender.Name
			msg.SenderAvatar = sender.Avatar
		}
	}

	// The message is stored from here on: failures are logged, not returned.
	recipients, err := p.router.ResolveRecipients(ctx, conversationID)
	if err != nil {
		p.logger.Error("fan-out failed", "conversation", conversationID, "message", msg.ID, "error", err)
		return msg, nil
	}
	for _, userID := range recipients {
		p.pusher.EmitTo(membership.PersonalRoom(userID), EventReceiveMessage, msg)
	}

	p.publish(ctx, ActionMessageSent, MessageSent{
		MessageID:      msg.ID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Recipients:     recipients,
		CreatedAt:      msg.CreatedAt,
	})

	p.logger.Debug("message delivered", "conversation", conversationID, "message", msg.ID, "recipients", len(recipients), "read", msg.IsRead)
	return msg, nil
}

func (p *Protocol) requireMember(ctx context.Context, conversationID, userID uint) error {
	ok, err := p.store.IsMember(ctx, conversationID, userID)
	if err != nil {
		return internal("membership", err)
	}
	if !ok {
		return fmt.Errorf("%w: user %d is not a member of conversation %d", ErrForbidden, userID, conversationID)
	}
	return nil
}

func (p *Protocol) nack(conn Conn, clientID string, err error) {
	level := slog.LevelWarn
	if errors.Is(err, ErrInternal) {
		level = slog.LevelError
	}
	p.logger.Log(conn.Context(), level, "send rejected", "user", conn.UserID(), "client_id", clientID, "error", err)

	conn.Emit(EventMessageNack, Nack{ClientID: clientID, Code: Code(err), Message: ErrorMessage(err)})
}

func (p *Protocol) publish(ctx context.Context, action string, data any) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(context.WithoutCancel(ctx), action, data); err != nil {
		p.logger.Warn("event publish failed", "action", action, "error", err)
	}
}

func toMessage(row model.Message, attachment *AttachmentRef) *Message {
	msg := &Message{
		ID:             row.ID,
		ConversationID: row.ConversationID,
		SenderID:       row.SenderID,
		Text:           row.Body,
		IsRead:         row.IsRead,
		IsSystem:       row.SenderID == nil,
		CreatedAt:      row.CreatedAt,
	}
	if attachment != nil {
		msg.Attachment = attachment
	} else if row.AttachmentURL != "" {
		msg.Attachment = &AttachmentRef{URL: row.AttachmentURL, Type: row.AttachmentType}
	}
	return msg
}
