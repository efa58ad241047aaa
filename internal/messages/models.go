package messages

import (
	"time"

	"github.com/google/uuid"
)

// MaxContentLength is the longest message body, in characters.
const MaxContentLength = 500

// Message is a stored note between a project owner and one of its applicants.
type Message struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ProjectID   uuid.UUID `db:"project_id" json:"project_id"`
	SenderID    uuid.UUID `db:"sender_id" json:"sender_id"`
	RecipientID uuid.UUID `db:"recipient_id" json:"recipient_id"`
	Content     string    `db:"content" json:"content"`
	IsRead      bool      `db:"is_read" json:"is_read"`
	SentAt      time.Time `db:"sent_at" json:"sent_at"`
}

// Conversation groups a user's messages with one partner, newest first.
type Conversation struct {
	PartnerID  uuid.UUID `json:"partner_id"`
	LastSentAt time.Time `json:"last_sent_at"`
	Unread     int       `json:"unread"`
	Messages   []Message `json:"messages"`
}

// ProjectRef is the slice of a project the message rules need.
type ProjectRef struct {
	ID      uuid.UUID `db:"id"`
	OwnerID uuid.UUID `db:"owner_id"`
	Title   string    `db:"title"`
}

type SendMessageRequest struct {
	ProjectID   uuid.UUID `json:"project_id" binding:"required"`
	RecipientID uuid.UUID `json:"recipient_id" binding:"required"`
	Content     string    `json:"content" binding:"required,max=500"`
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}
