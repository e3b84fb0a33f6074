package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/livedeck/livedeck/pkg/core/gesture"
)

const teardownTimeout = 5 * time.Second

// Session owns the connection and stream state for one live presentation.
// It mediates which actions are legal, runs the slide-change protocol, and
// guards against out-of-order asynchronous completions with monotonically
// increasing request tokens: any continuation captured under an older token
// is silently abandoned when a newer one has been minted.
type Session struct {
	streamer Streamer
	assets   AssetLoader
	logger   *slog.Logger

	mu         sync.Mutex
	connStatus ConnectionStatus
	stream     StreamState
	token      uint64
	slides     []Slide
	index      int

	ctx    context.Context
	cancel context.CancelFunc

	events chan Event
	closed atomic.Bool
}

// NewSession creates a session over the given collaborator and deck.
func NewSession(streamer Streamer, assets AssetLoader, slides []Slide, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		streamer:   streamer,
		assets:     assets,
		logger:     logger,
		connStatus: ConnAuthenticating,
		stream:     StreamIdle,
		slides:     slides,
		events:     make(chan Event, 64),
	}
}

// Events returns the channel for observing session events.
func (s *Session) Events() <-chan Event {
	return s.events
}

// ConnectionStatus returns the current collaborator connection status.
func (s *Session) ConnectionStatus() ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connStatus
}

// StreamState returns the current stream lifecycle state.
func (s *Session) StreamState() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

// StreamReady reports whether interactions are currently legal.
func (s *Session) StreamReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream == StreamStreaming
}

// CurrentSlide returns the slide the session is presenting.
func (s *Session) CurrentSlide() (Slide, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.slides) == 0 {
		return Slide{}, -1
	}
	return s.slides[s.index], s.index
}

// Start connects to the streaming collaborator. Stream startup then
// proceeds asynchronously: the connected callback kicks off the first
// slide's stream-start sequence.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.ctx != nil {
		s.mu.Unlock()
		return fmt.Errorf("session already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	err := s.streamer.Connect(s.ctx, Handlers{
		OnConnectionStatus: s.onConnectionStatus,
		OnStreamStarted:    s.onStreamStarted,
		OnStreamEnded:      s.onStreamEnded,
		OnStreamError:      s.onStreamError,
	})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// onConnectionStatus records a collaborator-reported status change. On the
// first transition to connected, the current slide's stream is started.
func (s *Session) onConnectionStatus(status ConnectionStatus) {
	if s.closed.Load() {
		return
	}

	s.mu.Lock()
	old := s.connStatus
	s.connStatus = status
	startFirst := status == ConnConnected && s.stream == StreamIdle && len(s.slides) > 0
	s.mu.Unlock()

	if old != status {
		s.logger.Info("connection status", "from", old.String(), "to", status.String())
		s.emit(&ConnectionStatusEvent{From: old, To: status})
	}

	if startFirst {
		s.changeSlide(s.currentIndex())
	}
}

func (s *Session) currentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// GoTo navigates to the slide at index. Out-of-range indexes are ignored.
// While connected this runs the full slide-change protocol; otherwise only
// the position moves and the stream starts on the next connect.
func (s *Session) GoTo(index int) {
	s.mu.Lock()
	if index < 0 || index >= len(s.slides) {
		s.mu.Unlock()
		return
	}
	s.index = index
	connected := s.connStatus == ConnConnected
	s.mu.Unlock()

	if connected {
		s.changeSlide(index)
	}
}

// Next advances to the following slide, if any.
func (s *Session) Next() {
	s.GoTo(s.currentIndex() + 1)
}

// Prev moves back to the previous slide, if any.
func (s *Session) Prev() {
	s.GoTo(s.currentIndex() - 1)
}

// changeSlide mints a new request token and runs the stream restart
// sequence for the slide at index. Two overlapping navigations cannot
// corrupt state: only the continuation holding the newest token is allowed
// to start a stream or mutate stream state.
func (s *Session) changeSlide(index int) {
	s.mu.Lock()
	if index < 0 || index >= len(s.slides) {
		s.mu.Unlock()
		return
	}
	s.token++
	token := s.token
	slide := s.slides[index]
	old := s.stream
	s.stream = StreamStarting
	ctx := s.ctx
	s.mu.Unlock()

	if old != StreamStarting {
		s.emit(&StreamStateEvent{From: old, To: StreamStarting})
	}
	s.emit(&SlideChangedEvent{SlideID: slide.ID, Index: index})

	go s.restartStream(ctx, token, slide)
}

// restartStream is the asynchronous half of the slide-change protocol. It
// re-checks its token after every suspension point; a stale token means a
// newer navigation owns the outcome and this sequence must vanish without
// touching state.
func (s *Session) restartStream(ctx context.Context, token uint64, slide Slide) {
	// Best-effort end of the previous stream; failures are swallowed.
	if err := s.streamer.EndStream(ctx); err != nil {
		s.logger.Debug("ending previous stream", "error", err)
	}
	if !s.tokenCurrent(token) {
		return
	}

	var image []byte
	if s.assets != nil && slide.ImageRef != "" {
		var err error
		image, err = s.assets.LoadImage(ctx, slide.ImageRef)
		if err != nil {
			if s.tokenCurrent(token) {
				s.setStreamError("asset_load", fmt.Sprintf("load slide image: %v", err))
			}
			return
		}
	}
	if !s.tokenCurrent(token) {
		return
	}

	err := s.streamer.StartStream(ctx, StartOptions{
		Prompt:    slide.Prompt,
		Image:     image,
		ImageMIME: "image/jpeg",
	})
	if err != nil && s.tokenCurrent(token) {
		s.setStreamError("stream_start", fmt.Sprintf("start stream: %v", err))
	}
}

func (s *Session) tokenCurrent(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token == token
}

// onStreamStarted moves starting to streaming.
func (s *Session) onStreamStarted() {
	if s.closed.Load() {
		return
	}
	s.transitionStream(StreamStarting, StreamStreaming)
}

// onStreamEnded moves streaming to ended. An ended callback that trails a
// newer navigation (the best-effort EndStream of the restart protocol)
// arrives while the state is starting and is deliberately ignored.
func (s *Session) onStreamEnded() {
	if s.closed.Load() {
		return
	}
	s.transitionStream(StreamStreaming, StreamEnded)
}

// onStreamError records a collaborator-reported lifecycle failure. The
// session stays alive and recoverable.
func (s *Session) onStreamError(reason, message string) {
	if s.closed.Load() {
		return
	}
	s.setStreamError(reason, message)
}

// transitionStream applies from -> to only when the current state matches.
func (s *Session) transitionStream(from, to StreamState) {
	s.mu.Lock()
	if s.stream != from {
		s.mu.Unlock()
		return
	}
	s.stream = to
	s.mu.Unlock()

	s.logger.Info("stream state", "from", from.String(), "to", to.String())
	s.emit(&StreamStateEvent{From: from, To: to})
}

func (s *Session) setStreamError(reason, message string) {
	s.mu.Lock()
	old := s.stream
	s.stream = StreamError
	s.mu.Unlock()

	s.logger.Warn("stream error", "reason", reason, "message", message)
	if old != StreamError {
		s.emit(&StreamStateEvent{From: old, To: StreamError})
	}
	s.emit(&StreamErrorEvent{Reason: reason, Message: message})
}

// Dispatch is the single funnel for all interaction modalities: confirmed
// gestures, transcribed speech, and typed prompts. It is a silent no-op
// when the prompt is blank or the stream is not ready, since user actions
// can legitimately race the asynchronous startup sequence. A failed
// interaction is surfaced but does not change stream state.
func (s *Session) Dispatch(ctx context.Context, prompt string) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" || !s.StreamReady() {
		return
	}

	if err := s.streamer.Interact(ctx, prompt); err != nil {
		s.logger.Warn("interaction failed", "error", err)
		s.emit(&ErrorEvent{Code: "interact_failed", Message: err.Error()})
		return
	}
	s.emit(&InteractionSentEvent{Prompt: prompt})
}

// DispatchGesture maps a confirmed gesture to its fixed phrase and
// dispatches it. None carries no phrase and is dropped.
func (s *Session) DispatchGesture(ctx context.Context, label gesture.Label) {
	phrase := label.Phrase()
	if phrase == "" {
		return
	}
	s.Dispatch(ctx, phrase)
}

// Close tears down the session: best-effort end of the active stream, then
// disconnect, swallowing failures from both. Any in-flight slide-transition
// sequence is cancelled implicitly, its token can never win again.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}

	s.mu.Lock()
	s.token++ // retire any in-flight sequence
	oldStream := s.stream
	s.stream = StreamEnded
	oldConn := s.connStatus
	s.connStatus = ConnDisconnected
	cancel := s.cancel
	s.mu.Unlock()

	ctx, done := context.WithTimeout(context.Background(), teardownTimeout)
	defer done()

	if err := s.streamer.EndStream(ctx); err != nil {
		s.logger.Debug("ending stream on close", "error", err)
	}
	if err := s.streamer.Disconnect(ctx); err != nil {
		s.logger.Debug("disconnecting on close", "error", err)
	}
	if cancel != nil {
		cancel()
	}

	if oldStream != StreamEnded {
		s.send(&StreamStateEvent{From: oldStream, To: StreamEnded})
	}
	if oldConn != ConnDisconnected {
		s.send(&ConnectionStatusEvent{From: oldConn, To: ConnDisconnected})
	}
	s.send(&SessionClosedEvent{Reason: "closed"})
}

// emit sends an event without blocking; a full channel drops the event.
// Emission stops once teardown has begun; SessionClosedEvent is the
// terminal event and the channel is intentionally left open, so a late
// callback can never race a close.
func (s *Session) emit(event Event) {
	if s.closed.Load() {
		return
	}
	s.send(event)
}

func (s *Session) send(event Event) {
	select {
	case s.events <- event:
	default:
	}
}
