// Package stream implements the streaming collaborator boundary over a
// WebSocket connection to the generative video service. The session core
// treats this purely as an event source plus verbs; all protocol detail
// stays here.
package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/livedeck/livedeck/pkg/core"
	"github.com/livedeck/livedeck/pkg/core/session"
)

const (
	defaultConnectTimeout = 15 * time.Second
	writeTimeout          = 10 * time.Second
)

// clientMessage is the outbound wire frame.
type clientMessage struct {
	Type     string `json:"type"`
	Prompt   string `json:"prompt,omitempty"`
	Image    string `json:"image,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
}

// serverMessage is the inbound wire frame.
type serverMessage struct {
	Type    string `json:"type"`
	Status  string `json:"status,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// Config holds connection settings for the video service.
type Config struct {
	URL            string
	APIKey         string
	ConnectTimeout time.Duration
}

// Client is a WebSocket implementation of session.Streamer.
type Client struct {
	cfg    Config
	logger *slog.Logger
	dialer *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers session.Handlers

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
	done      chan struct{}
}

// New creates a client for the given service endpoint.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, core.NewConfigurationError("video service url is required")
	}
	if cfg.APIKey == "" {
		return nil, core.NewConfigurationError("video service api key is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		logger: logger,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout},
		done:   make(chan struct{}),
	}, nil
}

// Connect dials the service and starts the read loop. Connection status
// changes are delivered through the registered handlers; the dial itself
// reports connecting synchronously so the caller sees progress even when
// the service is slow to answer.
func (c *Client) Connect(ctx context.Context, h session.Handlers) error {
	// A client is single-use: once Disconnect has run, done is closed and a
	// fresh read loop must never be started on it.
	if c.closed.Load() {
		return core.NewStreamError("closed", "connection is closed")
	}
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return fmt.Errorf("already connected")
	}
	c.handlers = h
	c.mu.Unlock()

	c.status(session.ConnConnecting)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		c.status(session.ConnFailed)
		return core.NewStreamError("dial", fmt.Sprintf("dial video service: %v", err))
	}
	if resp != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// StartStream begins video generation for the given prompt and image.
func (c *Client) StartStream(ctx context.Context, opts session.StartOptions) error {
	msg := clientMessage{
		Type:   "start_stream",
		Prompt: opts.Prompt,
	}
	if len(opts.Image) > 0 {
		msg.Image = base64.StdEncoding.EncodeToString(opts.Image)
		msg.MIMEType = opts.ImageMIME
	}
	return c.sendJSON(msg)
}

// Interact steers the live stream with a prompt.
func (c *Client) Interact(ctx context.Context, prompt string) error {
	return c.sendJSON(clientMessage{Type: "interact", Prompt: prompt})
}

// EndStream stops the current stream.
func (c *Client) EndStream(ctx context.Context) error {
	return c.sendJSON(clientMessage{Type: "end_stream"})
}

// Disconnect closes the WebSocket. Safe to call when never connected.
func (c *Client) Disconnect(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			close(c.done)
			return
		}

		c.writeMu.Lock()
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second),
		)
		c.writeMu.Unlock()
		_ = conn.Close()

		select {
		case <-c.done:
		case <-ctx.Done():
		}
		c.status(session.ConnDisconnected)
	})
	return nil
}

func (c *Client) sendJSON(v any) error {
	if c.closed.Load() {
		return core.NewStreamError("closed", "connection is closed")
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return core.NewStreamError("not_connected", "not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(v); err != nil {
		return core.NewStreamError("write", fmt.Sprintf("write frame: %v", err))
	}
	return nil
}

// readLoop decodes inbound frames and forwards them as handler callbacks
// until the connection dies.
func (c *Client) readLoop(conn *websocket.Conn) {
	defer close(c.done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			c.logger.Warn("read loop ended", "error", err)
			c.status(session.ConnFailed)
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("dropping malformed frame", "error", err)
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg serverMessage) {
	c.mu.Lock()
	h := c.handlers
	c.mu.Unlock()

	switch msg.Type {
	case "connection":
		if status, ok := parseStatus(msg.Status); ok && h.OnConnectionStatus != nil {
			h.OnConnectionStatus(status)
		}
	case "stream_started":
		if h.OnStreamStarted != nil {
			h.OnStreamStarted()
		}
	case "stream_ended":
		if h.OnStreamEnded != nil {
			h.OnStreamEnded()
		}
	case "stream_error":
		if h.OnStreamError != nil {
			h.OnStreamError(msg.Reason, msg.Message)
		}
	default:
		c.logger.Debug("unknown frame type", "type", msg.Type)
	}
}

func parseStatus(raw string) (session.ConnectionStatus, bool) {
	switch raw {
	case "authenticating":
		return session.ConnAuthenticating, true
	case "connecting":
		return session.ConnConnecting, true
	case "reconnecting":
		return session.ConnReconnecting, true
	case "connected":
		return session.ConnConnected, true
	case "disconnected":
		return session.ConnDisconnected, true
	case "failed":
		return session.ConnFailed, true
	default:
		return 0, false
	}
}

func (c *Client) status(status session.ConnectionStatus) {
	c.mu.Lock()
	h := c.handlers
	c.mu.Unlock()
	if h.OnConnectionStatus != nil {
		h.OnConnectionStatus(status)
	}
}
