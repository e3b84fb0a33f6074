package session

// Event is the interface for all session events. A UI layer subscribes to
// the session's events channel instead of polling state.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// ConnectionStatusEvent is emitted when the collaborator reports a new
// connection status.
type ConnectionStatusEvent struct {
	From ConnectionStatus `json:"from"`
	To   ConnectionStatus `json:"to"`
}

func (e *ConnectionStatusEvent) EventType() string { return "connection.status" }

// StreamStateEvent is emitted when the stream lifecycle state changes.
type StreamStateEvent struct {
	From StreamState `json:"from"`
	To   StreamState `json:"to"`
}

func (e *StreamStateEvent) EventType() string { return "stream.state" }

// SlideChangedEvent is emitted when a slide navigation begins.
type SlideChangedEvent struct {
	SlideID string `json:"slide_id"`
	Index   int    `json:"index"`
}

func (e *SlideChangedEvent) EventType() string { return "slide.changed" }

// InteractionSentEvent is emitted after a prompt reaches the collaborator.
type InteractionSentEvent struct {
	Prompt string `json:"prompt"`
}

func (e *InteractionSentEvent) EventType() string { return "interaction.sent" }

// StreamErrorEvent is emitted when the collaborator reports a stream
// lifecycle failure. The session stays alive; the user can recover by
// changing slides or reconnecting.
type StreamErrorEvent struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (e *StreamErrorEvent) EventType() string { return "stream.error" }

// ErrorEvent is a soft, non-fatal error surfaced to the observer layer.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorEvent) EventType() string { return "error" }

// SessionClosedEvent is emitted once on teardown.
type SessionClosedEvent struct {
	Reason string `json:"reason,omitempty"`
}

func (e *SessionClosedEvent) EventType() string { return "session.closed" }
