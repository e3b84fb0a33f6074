package ratelimit

import (
	"testing"
	"time"
)

func TestAcquireBurstThenDeny(t *testing.T) {
	l := New(Config{RPS: 1, Burst: 2})
	now := time.Unix(0, 0)

	for i := 0; i < 2; i++ {
		d := l.Acquire("c1", now)
		if !d.Allowed {
			t.Fatalf("call %d denied", i)
		}
		d.Permit.Release()
	}

	d := l.Acquire("c1", now)
	if d.Allowed {
		t.Fatal("third immediate call should be denied")
	}
	if d.RetryAfter < 1 {
		t.Errorf("RetryAfter = %d, want >= 1", d.RetryAfter)
	}
}

func TestAcquireRefillsOverTime(t *testing.T) {
	l := New(Config{RPS: 1, Burst: 1})
	now := time.Unix(0, 0)

	d := l.Acquire("c1", now)
	if !d.Allowed {
		t.Fatal("first call denied")
	}
	d.Permit.Release()

	if d := l.Acquire("c1", now); d.Allowed {
		t.Fatal("second call at t=0 should be denied")
	}
	if d := l.Acquire("c1", now.Add(time.Second)); !d.Allowed {
		t.Fatal("call after refill should be allowed")
	}
}

func TestClientsAreIndependent(t *testing.T) {
	l := New(Config{RPS: 1, Burst: 1})
	now := time.Unix(0, 0)

	if d := l.Acquire("c1", now); !d.Allowed {
		t.Fatal("c1 denied")
	}
	if d := l.Acquire("c2", now); !d.Allowed {
		t.Fatal("c2 should have its own bucket")
	}
}

func TestConcurrencyCap(t *testing.T) {
	l := New(Config{MaxConcurrentRequests: 1})
	now := time.Unix(0, 0)

	d1 := l.Acquire("c1", now)
	if !d1.Allowed {
		t.Fatal("first acquire denied")
	}
	if d := l.Acquire("c1", now); d.Allowed {
		t.Fatal("second in-flight should be denied")
	}
	d1.Permit.Release()
	if d := l.Acquire("c1", now); !d.Allowed {
		t.Fatal("acquire after release denied")
	}
}

func TestPermitReleaseIdempotent(t *testing.T) {
	l := New(Config{MaxConcurrentRequests: 1})
	now := time.Unix(0, 0)

	d := l.Acquire("c1", now)
	d.Permit.Release()
	d.Permit.Release() // must not double-free the slot

	d2 := l.Acquire("c1", now)
	if !d2.Allowed {
		t.Fatal("acquire after release denied")
	}
	if d3 := l.Acquire("c1", now); d3.Allowed {
		t.Fatal("cap should still hold after double release")
	}
}

func TestEntryGC(t *testing.T) {
	l := New(Config{RPS: 1, Burst: 1, MaxEntries: 2, EntryTTL: time.Minute})
	now := time.Unix(0, 0)

	l.Acquire("a", now)
	l.Acquire("b", now)
	// Third client forces a GC pass; the stale entries are past TTL.
	l.Acquire("c", now.Add(2*time.Minute))

	l.mu.Lock()
	n := len(l.m)
	l.mu.Unlock()
	if n != 1 {
		t.Errorf("entries after GC = %d, want 1", n)
	}
}

func TestClientKeyStable(t *testing.T) {
	a, b := ClientKey("key-1"), ClientKey("key-1")
	if a != b {
		t.Fatalf("%q != %q", a, b)
	}
	if a == ClientKey("key-2") {
		t.Fatal("distinct identities should map to distinct keys")
	}
}
