package events

import (
	"encoding/json"
	"fmt"
)

// Broadcaster pushes events to connected websocket clients.
type Broadcaster interface {
	Broadcast(event interface{})
}

// RelayScanCompleted returns a Subscribe handler that mirrors
// scan-completed events onto the websocket hub, giving connected UIs a
// push alongside the polling contract. Undecodable messages are
// reported back so the consumer redelivers them.
func RelayScanCompleted(hub Broadcaster) func([]byte) error {
	return func(data []byte) error {
		var event ScanCompletedEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("decode scan event: %w", err)
		}
		hub.Broadcast(map[string]any{
			"type":    "ats.scan.completed",
			"payload": event,
		})
		return nil
	}
}
