// Package chat implements grounded Q&A over one job posting: answers
// come from the posting text only, and every round trip is stored as an
// append-only user/ai message pair.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/applypilot/applypilot/internal/models"
)

// Store persists chat messages.
type Store struct {
	db *gorm.DB
}

// NewStore creates a message store on the given GORM handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the chat_messages table if missing.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&models.ChatMessage{})
}

// AppendExchange stores a question and its answer as one atomic pair.
// Either both messages land or neither does; a failed exchange leaves
// no trace in history. Ordering comes from the insertion sequence, not
// from timestamps, so pairs stay adjacent however fast they arrive.
func (s *Store) AppendExchange(ctx context.Context, jobID uuid.UUID, question, answer string) ([]models.ChatMessage, error) {
	now := time.Now().UTC()
	pair := []models.ChatMessage{
		{
			ID:               uuid.New(),
			JobApplicationID: jobID,
			Sender:           models.ChatSenderUser,
			Text:             question,
			CreatedAt:        now,
		},
		{
			ID:               uuid.New(),
			JobApplicationID: jobID,
			Sender:           models.ChatSenderAI,
			Text:             answer,
			CreatedAt:        now,
		},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range pair {
			if err := tx.Create(&pair[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("append chat exchange: %w", err)
	}

	return pair, nil
}

// History returns all messages for a job application, oldest first.
// Unknown applications simply have an empty history.
func (s *Store) History(ctx context.Context, jobID uuid.UUID) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("job_application_id = ?", jobID).
		Order("seq ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return messages, nil
}
