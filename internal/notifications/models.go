package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Kind classifies a notification by the lifecycle event that produced it.
type Kind string

const (
	KindApplication Kind = "application"
	KindShortlist   Kind = "shortlist"
	KindSubmission  Kind = "submission"
	KindFeedback    Kind = "feedback"
	KindWinner      Kind = "winner"
	KindCancelled   Kind = "cancelled"
	KindMessage     Kind = "message"
)

// Notification is one entry in a user's append-only inbox. Only the read flag
// changes after creation.
type Notification struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	UserID    uuid.UUID      `db:"user_id" json:"user_id"`
	Title     string         `db:"title" json:"title"`
	Message   string         `db:"message" json:"message"`
	Kind      Kind           `db:"kind" json:"kind"`
	Data      datatypes.JSON `db:"data" json:"data"`
	IsRead    bool           `db:"is_read" json:"is_read"`
	ReadAt    *time.Time     `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Message is what producers hand to the sink.
type Message struct {
	UserID  uuid.UUID
	Title   string
	Message string
	Kind    Kind
	Data    map[string]string
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}
