package history

import (
	"context"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStart EventType = "start"
	EventStop  EventType = "stop"
	// EventExit marks a core that died without being asked to stop.
	EventExit EventType = "exit"
)

// Event is one lifecycle transition of a supervised unit.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Unit       string    `json:"unit"`
	PID        int       `json:"pid"`
	BinPath    string    `json:"bin_path"`
	// Config is the JSON-encoded start configuration, empty if unknown.
	Config string `json:"config,omitempty"`
}

// Sink is a destination for history events.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
