package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatSender identifies who produced a chat message.
type ChatSender string

// ChatSender constants.
const (
	ChatSenderUser ChatSender = "user"
	ChatSenderAI   ChatSender = "ai"
)

// ChatMessage belongs to one job application. Messages are append-only
// and ordered by insertion sequence; wall-clock timestamps may tie
// across a fast pair of exchanges, Seq never does.
type ChatMessage struct {
	Seq              int64      `json:"-" gorm:"primaryKey;autoIncrement"`
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;uniqueIndex"`
	JobApplicationID uuid.UUID  `json:"job_application_id" gorm:"type:uuid;index"`
	Sender           ChatSender `json:"sender" gorm:"type:varchar(10)"`
	Text             string     `json:"text" gorm:"type:text"`
	CreatedAt        time.Time  `json:"timestamp"`
}

// TableName keeps the GORM table name explicit.
func (ChatMessage) TableName() string {
	return "chat_messages"
}
