package gesture

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is how long a label must persist before it is
// confirmed.
const DefaultDebounceWindow = 1200 * time.Millisecond

// Debouncer converts a rapid-fire stream of classification results into a
// single stabilized gesture. A label must win unopposed for a full window
// before the confirm callback fires.
//
// Rules:
//   - none is ignored entirely: it neither arms a timer nor cancels a
//     pending label, so one stray empty reading cannot reset a gesture that
//     is stabilizing.
//   - A differing label supersedes the pending one and rearms the timer.
//   - A matching label is idempotent; the existing deadline stands.
//
// Timer replacement is cancel-and-replace under the mutex; a generation
// counter makes a timer that already fired but has not yet run a strict
// no-op, so cancel-then-reschedule always wins the race against fire.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending Label
	timer   *time.Timer
	gen     uint64

	onConfirm func(label Label)
}

// NewDebouncer creates a debouncer that calls onConfirm once a label has
// held for the given window. A non-positive window falls back to
// DefaultDebounceWindow.
func NewDebouncer(window time.Duration, onConfirm func(label Label)) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{
		window:    window,
		onConfirm: onConfirm,
	}
}

// Observe feeds one classification result into the debouncer.
func (d *Debouncer) Observe(label Label) {
	if label.IsNone() {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if label == d.pending {
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = label
	d.timer = time.AfterFunc(d.window, func() {
		d.fire(gen)
	})
}

// fire runs when the window elapses. It confirms only if no newer label was
// armed in the meantime.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending.IsNone() {
		d.mu.Unlock()
		return
	}
	label := d.pending
	d.pending = LabelNone
	d.timer = nil
	callback := d.onConfirm
	d.mu.Unlock()

	if callback != nil {
		callback(label)
	}
}

// Pending returns the label currently awaiting confirmation, or none.
func (d *Debouncer) Pending() Label {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Cancel clears any pending label without confirming it. Safe to call when
// nothing is pending.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = LabelNone
	d.mu.Unlock()
}
