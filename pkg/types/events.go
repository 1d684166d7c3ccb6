package types

import "time"

// Generation event type constants, broadcast over the WebSocket hub while a
// network build is running.
const (
	// EventGenerationStarted fires when a build passes identity resolution
	EventGenerationStarted = "generation_started"

	// EventSourceSelected fires when an adapter wins the fallback chain
	EventSourceSelected = "source_selected"

	// EventGenerationCompleted fires when the finished document is persisted
	EventGenerationCompleted = "generation_completed"

	// EventGenerationFailed fires when the build ends without a usable document
	EventGenerationFailed = "generation_failed"
)

// GenerationEvent is one lifecycle notification for a network build.
type GenerationEvent struct {
	Type       string    `json:"type"`
	RunID      string    `json:"runId"`
	ArtistName string    `json:"artistName"`
	Source     string    `json:"source,omitempty"`     // Winning adapter, for source_selected and later events
	Candidates int       `json:"candidates,omitempty"` // Surviving candidate count, for source_selected
	Nodes      int       `json:"nodes,omitempty"`      // Node count, for generation_completed
	Links      int       `json:"links,omitempty"`      // Link count, for generation_completed
	Error      string    `json:"error,omitempty"`      // Failure reason, for generation_failed
	Timestamp  time.Time `json:"timestamp"`
}
