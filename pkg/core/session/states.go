package session

// ConnectionStatus is the state of the link to the streaming collaborator.
// It is set only from collaborator callbacks; the session never
// self-transitions connection state.
type ConnectionStatus int

const (
	ConnAuthenticating ConnectionStatus = iota
	ConnConnecting
	ConnReconnecting
	ConnConnected
	ConnDisconnected
	ConnFailed
)

// String returns a human-readable status name.
func (s ConnectionStatus) String() string {
	switch s {
	case ConnAuthenticating:
		return "AUTHENTICATING"
	case ConnConnecting:
		return "CONNECTING"
	case ConnReconnecting:
		return "RECONNECTING"
	case ConnConnected:
		return "CONNECTED"
	case ConnDisconnected:
		return "DISCONNECTED"
	case ConnFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// StreamState is the lifecycle state of the current video stream.
// StreamStreaming is the only state in which interactions are legal.
type StreamState int

const (
	StreamIdle StreamState = iota
	StreamStarting
	StreamStreaming
	StreamEnded
	StreamError
)

// String returns a human-readable state name.
func (s StreamState) String() string {
	switch s {
	case StreamIdle:
		return "IDLE"
	case StreamStarting:
		return "STARTING"
	case StreamStreaming:
		return "STREAMING"
	case StreamEnded:
		return "ENDED"
	case StreamError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
