package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

// MockStreamPublisher records the last publish call.
type MockStreamPublisher struct {
	PublishedSubject string
	PublishedData    any
	PublishError     error
}

func (m *MockStreamPublisher) Publish(_ context.Context, subject string, data any) error {
	m.PublishedSubject = subject
	m.PublishedData = data
	return m.PublishError
}

func TestPublishScanCompleted(t *testing.T) {
	mock := &MockStreamPublisher{}
	pub := NewPublisher(mock)

	analysisID, jobID := uuid.New(), uuid.New()
	pub.PublishScanCompleted(context.Background(), analysisID, jobID, false)

	if mock.PublishedSubject != SubjectScanCompleted {
		t.Errorf("subject = %s, want %s", mock.PublishedSubject, SubjectScanCompleted)
	}

	event, ok := mock.PublishedData.(ScanCompletedEvent)
	if !ok {
		t.Fatalf("payload has type %T", mock.PublishedData)
	}
	if event.AnalysisID != analysisID || event.JobApplicationID != jobID {
		t.Error("event carries wrong ids")
	}
	if event.Failed {
		t.Error("event should not be marked failed")
	}

	if _, err := json.Marshal(event); err != nil {
		t.Errorf("event not serializable: %v", err)
	}
}

func TestPublishScanCompletedNilSafe(t *testing.T) {
	var pub *Publisher
	// must not panic
	pub.PublishScanCompleted(context.Background(), uuid.New(), uuid.New(), true)

	pub = NewPublisher(nil)
	pub.PublishScanCompleted(context.Background(), uuid.New(), uuid.New(), true)
}

func TestPublishScanCompletedSwallowsErrors(t *testing.T) {
	mock := &MockStreamPublisher{PublishError: errors.New("nats down")}
	pub := NewPublisher(mock)

	// best-effort: no panic, no error surfaced
	pub.PublishScanCompleted(context.Background(), uuid.New(), uuid.New(), true)
}
