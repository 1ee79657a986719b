package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/applypilot/applypilot/internal/llm"
	"github.com/applypilot/applypilot/internal/logger"
	"github.com/applypilot/applypilot/internal/models"
)

// Common errors
var (
	ErrApplicationNotFound = errors.New("job application not found")
	ErrEmptyQuestion       = errors.New("question text is empty")
	ErrNoDescription       = errors.New("job application has no description text")
)

// ApplicationsReader provides job application lookups.
type ApplicationsReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error)
}

// LLMClient abstracts the LLM provider.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Service answers questions about one job posting, grounded on its
// stored description text only.
type Service struct {
	store *Store
	apps  ApplicationsReader
	llm   LLMClient
}

// NewService creates a chat service.
func NewService(store *Store, apps ApplicationsReader, llmClient LLMClient) *Service {
	return &Service{store: store, apps: apps, llm: llmClient}
}

// Ask answers a question about the job posting and appends the
// question/answer pair to history. A failed round leaves history
// untouched: nothing is persisted until the answer exists.
func (s *Service) Ask(ctx context.Context, jobID uuid.UUID, question string) ([]models.ChatMessage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	app, err := s.apps.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch application: %w", err)
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}
	if app.Description == "" {
		return nil, ErrNoDescription
	}

	answer, err := s.llm.Complete(ctx, llm.ChatSystemPrompt, llm.BuildChatPrompt(app.Description, question))
	if err != nil {
		return nil, fmt.Errorf("llm unavailable: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, errors.New("invalid model output: empty answer")
	}

	pair, err := s.store.AppendExchange(ctx, jobID, question, answer)
	if err != nil {
		return nil, err
	}

	logger.Get().Debug().Str("job_id", jobID.String()).Msg("chat exchange stored")
	return pair, nil
}

// History returns the full conversation for a job application, oldest
// first.
func (s *Service) History(ctx context.Context, jobID uuid.UUID) ([]models.ChatMessage, error) {
	return s.store.History(ctx, jobID)
}
