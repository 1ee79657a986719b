package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// MockHub records broadcast events.
type MockHub struct {
	Events []interface{}
}

func (m *MockHub) Broadcast(event interface{}) {
	m.Events = append(m.Events, event)
}

func TestRelayScanCompleted(t *testing.T) {
	hub := &MockHub{}
	relay := RelayScanCompleted(hub)

	event := ScanCompletedEvent{
		AnalysisID:       uuid.New(),
		JobApplicationID: uuid.New(),
		CompletedAt:      time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	if err := relay(data); err != nil {
		t.Fatalf("relay returned error: %v", err)
	}
	if len(hub.Events) != 1 {
		t.Fatalf("broadcast %d events, want 1", len(hub.Events))
	}

	envelope, ok := hub.Events[0].(map[string]any)
	if !ok {
		t.Fatalf("broadcast has type %T", hub.Events[0])
	}
	if envelope["type"] != "ats.scan.completed" {
		t.Errorf("type = %v, want ats.scan.completed", envelope["type"])
	}
	payload, ok := envelope["payload"].(ScanCompletedEvent)
	if !ok {
		t.Fatalf("payload has type %T", envelope["payload"])
	}
	if payload.AnalysisID != event.AnalysisID {
		t.Error("payload carries wrong analysis id")
	}
}

func TestRelayScanCompletedRejectsGarbage(t *testing.T) {
	hub := &MockHub{}
	relay := RelayScanCompleted(hub)

	if err := relay([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
	if len(hub.Events) != 0 {
		t.Error("garbage must not be broadcast")
	}
}
