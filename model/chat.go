package model

import "time"

const (
	KindDirect = "direct"
	KindGroup  = "group"
)

type Conversation struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Kind      string       `gorm:"not null;size:16" json:"kind"`
	Name      string       `json:"name"`
	DirectKey *string      `gorm:"uniqueIndex;size:64" json:"-"`
	CreatedAt time.Time    `json:"createdAt"`
	Members   []Membership `gorm:"foreignKey:ConversationID" json:"members,omitempty"`
}

type Membership struct {
	ConversationID uint      `gorm:"primaryKey;autoIncrement:false" json:"conversationId"`
	UserID         uint      `gorm:"primaryKey;autoIncrement:false;index" json:"userId"`
	IsAdmin        bool      `gorm:"not null;default:false" json:"isAdmin"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Message is immutable once stored except for IsRead, which only moves from false to true.
// A nil SenderID marks a system message.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index:idx_messages_conversation_created,priority:1" json:"conversationId"`
	SenderID       *uint     `gorm:"index" json:"senderId"`
	Body           string    `gorm:"not null" json:"body"`
	AttachmentURL  string    `json:"attachmentUrl,omitempty"`
	AttachmentType string    `json:"attachmentType,omitempty"`
	IsRead         bool      `gorm:"not null;default:false" json:"isRead"`
	CreatedAt      time.Time `gorm:"index:idx_messages_conversation_created,priority:2" json:"createdAt"`
}

// Attachment holds uploaded bytes when the database attachment store is used.
type Attachment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	MediaType string    `gorm:"not null" json:"mediaType"`
	Size      int64     `gorm:"not null" json:"size"`
	Data      []byte    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
