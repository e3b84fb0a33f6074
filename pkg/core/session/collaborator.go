package session

import "context"

// Handlers are the asynchronous callbacks delivered by the streaming
// collaborator. The session registers these on Connect and treats the
// collaborator purely as an event source plus verbs.
type Handlers struct {
	OnConnectionStatus func(status ConnectionStatus)
	OnStreamStarted    func()
	OnStreamEnded      func()
	OnStreamError      func(reason, message string)
}

// StartOptions parameterize one stream-start call.
type StartOptions struct {
	Prompt    string
	Image     []byte
	ImageMIME string
}

// Streamer is the boundary to the generative video streaming collaborator.
type Streamer interface {
	// Connect establishes the session link and registers callbacks.
	Connect(ctx context.Context, h Handlers) error

	// StartStream begins generating video for the given prompt and image.
	StartStream(ctx context.Context, opts StartOptions) error

	// Interact steers the live stream with a prompt.
	Interact(ctx context.Context, prompt string) error

	// EndStream stops the current stream.
	EndStream(ctx context.Context) error

	// Disconnect tears down the session link.
	Disconnect(ctx context.Context) error
}
