package chat

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Push channel events.
const (
	EventJoinChat    = "join_chat"
	EventLeaveChat   = "leave_chat"
	EventSendMessage = "send_message"

	EventUserOnline     = "user_online"
	EventUserOffline    = "user_offline"
	EventOnlineUsers    = "online_users"
	EventReceiveMessage = "receive_message"
	EventMessageAck     = "message_ack"
	EventMessageNack    = "message_nack"
	EventJoinRefused    = "join_refused"
)

// Actions published to the message broker.
const (
	ActionMessageSent   = "message.sent"
	ActionUserOnline    = "user.online"
	ActionUserOffline   = "user.offline"
	ActionSystemMessage = "system_message"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type AttachmentRef struct {
	URL  string `json:"url" validate:"required,uri,max=2048"`
	Type string `json:"type" validate:"required,max=127"`
	Name string `json:"name,omitempty" validate:"max=255"`
}

// SendMessage is the decoded payload of send_message.
type SendMessage struct {
	ConversationID uint           `json:"conversationId" validate:"required"`
	Text           string         `json:"text" validate:"required_without=Attachment,max=4000"`
	Attachment     *AttachmentRef `json:"attachment,omitempty"`
	ClientID       string         `json:"clientId,omitempty" validate:"max=64"`
}

// Message is the receive_message payload. Every member gets the same copy.
type Message struct {
	ID             uint           `json:"id"`
	ConversationID uint           `json:"conversationId"`
	SenderID       *uint          `json:"senderId"`
	SenderName     string         `json:"senderName,omitempty"`
	SenderAvatar   string         `json:"senderAvatar,omitempty"`
	Text           string         `json:"text"`
	Attachment     *AttachmentRef `json:"attachment,omitempty"`
	IsRead         bool           `json:"isRead"`
	IsSystem       bool           `json:"isSystem"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// HistoryMessage is a Message as seen by one requester.
type HistoryMessage struct {
	Message
	IsMe bool `json:"isMe"`
}

type Ack struct {
	ClientID       string `json:"clientId,omitempty"`
	MessageID      uint   `json:"messageId"`
	ConversationID uint   `json:"conversationId"`
}

type Nack struct {
	ClientID string `json:"clientId,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

type JoinRefused struct {
	ConversationID uint   `json:"conversationId,omitempty"`
	Code           string `json:"code"`
	Message        string `json:"message"`
}

// Broker payloads.

type MessageSent struct {
	MessageID      uint      `json:"messageId"`
	ConversationID uint      `json:"conversationId"`
	SenderID       *uint     `json:"senderId"`
	Recipients     []uint    `json:"recipients"`
	CreatedAt      time.Time `json:"createdAt"`
}

type PresenceChanged struct {
	UserID uint `json:"userId"`
	Online bool `json:"online"`
}

type SystemMessageCommand struct {
	ConversationID uint   `json:"conversationId" validate:"required"`
	Text           string `json:"text" validate:"required,max=4000"`
}

// DecodeConversationID accepts a number, a numeric string or an object with a
// conversationId field.
func DecodeConversationID(v any) (uint, error) {
	switch id := v.(type) {
	case float64:
		if id >= 1 && id == math.Trunc(id) && id <= math.MaxUint32 {
			return uint(id), nil
		}
	case int:
		if id > 0 {
			return uint(id), nil
		}
	case int64:
		if id > 0 {
			return uint(id), nil
		}
	case uint:
		if id > 0 {
			return id, nil
		}
	case json.Number:
		return DecodeConversationID(id.String())
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 32)
		if err == nil && n > 0 {
			return uint(n), nil
		}
	case map[string]any:
		if inner, ok := id["conversationId"]; ok {
			return DecodeConversationID(inner)
		}
	}
	return 0, fmt.Errorf("%w: conversation id %v", ErrInvalidArgument, v)
}

// DecodeSendMessage turns a raw send_message argument into a validated SendMessage.
// The argument may be a decoded JSON object or a JSON string.
func DecodeSendMessage(v any) (SendMessage, error) {
	var raw []byte
	switch payload := v.(type) {
	case string:
		raw = []byte(payload)
	case []byte:
		raw = payload
	default:
		var err error
		if raw, err = json.Marshal(payload); err != nil {
			return SendMessage{}, fmt.Errorf("%w: payload: %v", ErrInvalidArgument, err)
		}
	}

	var wire struct {
		ConversationID any            `json:"conversationId"`
		Text           string         `json:"text"`
		Attachment     *AttachmentRef `json:"attachment"`
		ClientID       string         `json:"clientId"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return SendMessage{}, fmt.Errorf("%w: payload: %v", ErrInvalidArgument, err)
	}

	msg := SendMessage{
		Text:       strings.TrimSpace(wire.Text),
		Attachment: wire.Attachment,
		ClientID:   wire.ClientID,
	}

	id, err := DecodeConversationID(wire.ConversationID)
	if err != nil {
		return msg, err
	}
	msg.ConversationID = id

	if err := validate.Struct(msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return msg, nil
}
