package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/applypilot/applypilot/internal/logger"
)

// StreamPublisher interface to allow mocking
type StreamPublisher interface {
	Publish(ctx context.Context, subject string, data any) error
}

// ScanCompletedEvent is emitted when an ATS scan reaches a terminal
// state, success or failure.
type ScanCompletedEvent struct {
	AnalysisID       uuid.UUID `json:"analysis_id"`
	JobApplicationID uuid.UUID `json:"job_application_id"`
	Failed           bool      `json:"failed"`
	CompletedAt      time.Time `json:"completed_at"`
}

// Publisher emits typed lifecycle events. A nil Publisher is a valid
// no-op, so callers never branch on whether NATS is configured.
type Publisher struct {
	js StreamPublisher
}

// NewPublisher creates a publisher over a jetstream client.
func NewPublisher(js StreamPublisher) *Publisher {
	return &Publisher{js: js}
}

// PublishScanCompleted emits a scan-completed event. Publishing is
// best-effort; failures are logged and never surface to the scan.
func (p *Publisher) PublishScanCompleted(ctx context.Context, analysisID, jobID uuid.UUID, failed bool) {
	if p == nil || p.js == nil {
		return
	}

	event := ScanCompletedEvent{
		AnalysisID:       analysisID,
		JobApplicationID: jobID,
		Failed:           failed,
		CompletedAt:      time.Now().UTC(),
	}

	if err := p.js.Publish(ctx, SubjectScanCompleted, event); err != nil {
		logger.Get().Error().Err(err).Str("analysis_id", analysisID.String()).Msg("failed to publish scan event")
	}
}
