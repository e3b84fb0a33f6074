package gesture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/livedeck/livedeck/pkg/core"
)

const (
	// DefaultPollInterval is the minimum spacing between frame samples.
	DefaultPollInterval = 1200 * time.Millisecond
	// DefaultTickInterval is the cadence of the loop's elapsed-time check.
	// Polling is cheap; the expensive metered path is gated separately by
	// the Governor's cooldown.
	DefaultTickInterval = 200 * time.Millisecond
)

// FrameSource produces still frames from a live video device. The capture
// loop exclusively owns the source it is given and closes it on every exit
// path; a leaked camera handle is a correctness bug.
type FrameSource interface {
	// Grab captures one still frame. It returns an error when the device
	// is unavailable or disabled.
	Grab(ctx context.Context) (Frame, error)

	// Close releases the underlying device.
	Close() error
}

// CaptureConfig holds the tunables for a capture loop.
type CaptureConfig struct {
	// PollInterval is the minimum spacing between frame samples.
	PollInterval time.Duration
	// TickInterval is the loop's wakeup cadence.
	TickInterval time.Duration
}

// CaptureLoop samples frames from a live source on a fixed cadence and
// submits them for classification, subject to stream readiness and Governor
// admission. Classification failures are swallowed at the loop boundary so
// the loop keeps running on the next cadence tick.
type CaptureLoop struct {
	cfg        CaptureConfig
	source     FrameSource
	classifier Classifier
	governor   *Governor
	debouncer  *Debouncer
	ready      func() bool
	logger     *slog.Logger
	now        func() time.Time

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
	lastSample time.Time
}

// NewCaptureLoop wires a capture loop. ready reports whether the session is
// currently stream-ready; when it returns false, frames are still sampled
// but never submitted for classification.
func NewCaptureLoop(
	cfg CaptureConfig,
	source FrameSource,
	classifier Classifier,
	governor *Governor,
	debouncer *Debouncer,
	ready func() bool,
	logger *slog.Logger,
) *CaptureLoop {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	if ready == nil {
		ready = func() bool { return false }
	}
	return &CaptureLoop{
		cfg:        cfg,
		source:     source,
		classifier: classifier,
		governor:   governor,
		debouncer:  debouncer,
		ready:      ready,
		logger:     logger,
		now:        time.Now,
	}
}

// Start begins sampling. It is a no-op if the loop is already running.
func (c *CaptureLoop) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.running = true
	c.cancel = cancel
	c.done = make(chan struct{})
	c.lastSample = time.Time{}
	done := c.done
	c.mu.Unlock()

	go c.run(loopCtx, done)
}

// Stop cancels the pending iteration, waits for the loop to exit, releases
// the frame source, and resets governor and debounce state. Safe to call
// when the loop was never started or has already stopped.
func (c *CaptureLoop) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		c.closeSource()
		return
	}
	c.running = false
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	cancel()
	<-done

	c.closeSource()
	c.governor.Reset()
	c.debouncer.Cancel()
}

func (c *CaptureLoop) closeSource() {
	c.mu.Lock()
	source := c.source
	c.source = nil
	c.mu.Unlock()

	if source != nil {
		if err := source.Close(); err != nil {
			c.logger.Warn("closing frame source", "error", err)
		}
	}
}

// Running reports whether the loop is active.
func (c *CaptureLoop) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *CaptureLoop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick performs one cadence check: sample a frame if the poll interval has
// elapsed, and submit it when the session is stream-ready and the governor
// admits.
func (c *CaptureLoop) tick(ctx context.Context) {
	now := c.now()

	c.mu.Lock()
	if !c.running || c.source == nil {
		c.mu.Unlock()
		return
	}
	if !c.lastSample.IsZero() && now.Sub(c.lastSample) < c.cfg.PollInterval {
		c.mu.Unlock()
		return
	}
	c.lastSample = now
	source := c.source
	c.mu.Unlock()

	frame, err := source.Grab(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Debug("frame grab failed", "error", err)
		}
		return
	}

	if !c.ready() {
		return
	}
	if !c.governor.TryAcquire(now) {
		return
	}

	go c.classify(ctx, frame)
}

// classify runs one remote classification attempt. The governor permit is
// released unconditionally on completion.
func (c *CaptureLoop) classify(ctx context.Context, frame Frame) {
	defer c.governor.Release()

	label, err := c.classifier.Classify(ctx, frame)
	if err != nil {
		if retryAfterMs, ok := core.IsRateLimit(err); ok {
			delay := time.Duration(retryAfterMs) * time.Millisecond
			c.governor.Throttle(c.now(), delay)
			c.logger.Info("classifier throttled", "retry_after_ms", retryAfterMs)
			return
		}
		if ctx.Err() == nil {
			var coreErr *core.Error
			if errors.As(err, &coreErr) && coreErr.IsRetryable() {
				c.logger.Warn("classification failed, retrying on next sample", "error", err)
			} else {
				c.logger.Error("classification failed", "error", err)
			}
		}
		return
	}

	// A result that lands after Stop must not arm a new pending gesture.
	if ctx.Err() != nil {
		return
	}
	c.debouncer.Observe(label)
}
