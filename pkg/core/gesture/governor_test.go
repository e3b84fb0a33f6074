package gesture

import (
	"testing"
	"time"
)

func TestGovernor_SingleInFlight(t *testing.T) {
	g := NewGovernor(8 * time.Second)
	now := time.Unix(1000, 0)

	if !g.TryAcquire(now) {
		t.Fatal("first acquire should succeed")
	}
	if g.TryAcquire(now.Add(time.Minute)) {
		t.Error("second acquire should fail while in flight, even past cooldown")
	}

	g.Release()
	if !g.TryAcquire(now.Add(time.Minute)) {
		t.Error("acquire should succeed after release and cooldown")
	}
}

func TestGovernor_Cooldown(t *testing.T) {
	g := NewGovernor(8 * time.Second)
	now := time.Unix(1000, 0)

	if !g.TryAcquire(now) {
		t.Fatal("first acquire should succeed")
	}
	g.Release()

	if g.TryAcquire(now.Add(7999 * time.Millisecond)) {
		t.Error("acquire inside cooldown window should fail")
	}
	if !g.TryAcquire(now.Add(8 * time.Second)) {
		t.Error("acquire at cooldown boundary should succeed")
	}
}

func TestGovernor_RetryAfterOverridesCooldown(t *testing.T) {
	// Scenario: a 429 at t=0 with retryAfterMs=10000 must suppress attempts
	// until t=10s even though the cooldown alone would allow one at t=8s.
	g := NewGovernor(8 * time.Second)
	now := time.Unix(1000, 0)

	if !g.TryAcquire(now) {
		t.Fatal("first acquire should succeed")
	}
	g.Throttle(now, 10*time.Second)
	g.Release()

	if g.TryAcquire(now.Add(8 * time.Second)) {
		t.Error("acquire at t=8s should fail, retry-after deadline is t=10s")
	}
	if g.TryAcquire(now.Add(9999 * time.Millisecond)) {
		t.Error("acquire just before retry-after deadline should fail")
	}
	if !g.TryAcquire(now.Add(10 * time.Second)) {
		t.Error("acquire at retry-after deadline should succeed")
	}
}

func TestGovernor_ThrottleDefaultDelay(t *testing.T) {
	g := NewGovernor(time.Second)
	now := time.Unix(1000, 0)

	// Server gave no delay; the default applies.
	g.Throttle(now, 0)

	if g.TryAcquire(now.Add(DefaultRetryAfter - time.Millisecond)) {
		t.Error("acquire before default retry-after should fail")
	}
	if !g.TryAcquire(now.Add(DefaultRetryAfter)) {
		t.Error("acquire at default retry-after should succeed")
	}
}

func TestGovernor_ThrottleNeverShortensDeadline(t *testing.T) {
	g := NewGovernor(time.Second)
	now := time.Unix(1000, 0)

	g.Throttle(now, 20*time.Second)
	g.Throttle(now, 5*time.Second)

	if g.TryAcquire(now.Add(10 * time.Second)) {
		t.Error("later shorter throttle must not shorten an existing deadline")
	}
	if !g.TryAcquire(now.Add(20 * time.Second)) {
		t.Error("acquire at the longer deadline should succeed")
	}
}

func TestGovernor_Reset(t *testing.T) {
	g := NewGovernor(8 * time.Second)
	now := time.Unix(1000, 0)

	if !g.TryAcquire(now) {
		t.Fatal("first acquire should succeed")
	}
	g.Throttle(now, time.Hour)
	g.Reset()

	if !g.TryAcquire(now.Add(time.Millisecond)) {
		t.Error("acquire after reset should succeed immediately")
	}
}

func TestGovernor_ReleaseWithoutAcquire(t *testing.T) {
	g := NewGovernor(time.Second)
	g.Release() // must not panic or corrupt state

	if !g.TryAcquire(time.Unix(1000, 0)) {
		t.Error("acquire after spurious release should succeed")
	}
}

func TestGovernor_DefaultCooldown(t *testing.T) {
	g := NewGovernor(0)
	now := time.Unix(1000, 0)

	if !g.TryAcquire(now) {
		t.Fatal("first acquire should succeed")
	}
	g.Release()

	if g.TryAcquire(now.Add(DefaultCooldown - time.Millisecond)) {
		t.Error("zero cooldown config should fall back to the default")
	}
}
