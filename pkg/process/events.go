// Package process runs the scan-and-extract pipeline: it walks the
// configured roots, fans candidate files across a worker pool, and
// commits extracted records to the store in batches.
package process

// EventType names the phases a run reports.
type EventType string

const (
	EventStarted   EventType = "started"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventError     EventType = "error"
)

// Event is one progress notification. Progress counts are monotonic
// within a run and reported at a bounded rate, not per file.
type Event struct {
	Type      EventType `json:"type"`
	Total     int       `json:"total"`
	Processed int       `json:"processed"`
	Kept      int       `json:"kept"`
	Skipped   int       `json:"skipped"`
	// Unsupported counts files whose bytes are not a recognized image
	// format despite the extension; kept apart from Skipped so a
	// photo's absence from the map is always explainable.
	Unsupported int    `json:"unsupported"`
	Failed      int    `json:"failed"`
	Message     string `json:"message,omitempty"`
}

// EventSink receives pipeline events. The pipeline neither knows nor
// cares how they reach a UI.
type EventSink interface {
	Publish(Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// Discard drops all events.
var Discard EventSink = SinkFunc(func(Event) {})
