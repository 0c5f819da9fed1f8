package protocol

import (
	"time"

	"github.com/google/uuid"
)

// EventCommandGenerated is emitted every time an install command is rendered.
const EventCommandGenerated = "install_command.generated"

// Event is the canonical event envelope published on mkxray.events.<source>.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	Timestamp int64          `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

// NewEvent creates an Event with a generated ID and current timestamp.
func NewEvent(eventType, source string, payload map[string]any) Event {
	return Event{
		ID:        "evt_" + uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().Unix(),
		Payload:   payload,
	}
}

// NewCommandEvent builds an EventCommandGenerated event.
func NewCommandEvent(source, dest, arch, command string) Event {
	return NewEvent(EventCommandGenerated, source, map[string]any{
		"dest":    dest,
		"arch":    arch,
		"command": command,
	})
}
