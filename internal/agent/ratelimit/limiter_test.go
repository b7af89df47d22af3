package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllowsUpToLimit(t *testing.T) {
	t.Parallel()

	l := NewLimiter(30, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 30; i++ {
		d := l.CheckAt(UserKey("u1"), now)
		if !d.Allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}

	d := l.CheckAt(UserKey("u1"), now.Add(time.Second))
	if d.Allowed {
		t.Fatal("31st request within window allowed, want denied")
	}
	if d.RetryAfter <= 0 {
		t.Fatalf("RetryAfter = %v, want positive", d.RetryAfter)
	}
	if d.RetryAfter > time.Minute {
		t.Fatalf("RetryAfter = %v, want <= window", d.RetryAfter)
	}
}

func TestLimiterWindowReset(t *testing.T) {
	t.Parallel()

	l := NewLimiter(2, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	l.CheckAt("ip:1.2.3.4", now)
	l.CheckAt("ip:1.2.3.4", now)
	if d := l.CheckAt("ip:1.2.3.4", now); d.Allowed {
		t.Fatal("third request in window allowed")
	}

	// A new window starts at the reset boundary.
	if d := l.CheckAt("ip:1.2.3.4", now.Add(time.Minute)); !d.Allowed {
		t.Fatal("request after window reset denied")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	t.Parallel()

	l := NewLimiter(1, time.Minute)
	now := time.Now()

	if d := l.CheckAt(UserKey("a"), now); !d.Allowed {
		t.Fatal("first request for key a denied")
	}
	if d := l.CheckAt(UserKey("b"), now); !d.Allowed {
		t.Fatal("first request for key b denied")
	}
	if d := l.CheckAt(UserKey("a"), now); d.Allowed {
		t.Fatal("second request for key a allowed")
	}
}

func TestLimiterRemainingCountsDown(t *testing.T) {
	t.Parallel()

	l := NewLimiter(3, time.Minute)
	now := time.Now()

	want := []int{2, 1, 0}
	for i, w := range want {
		d := l.CheckAt("user:x", now)
		if d.Remaining != w {
			t.Fatalf("check %d: Remaining = %d, want %d", i+1, d.Remaining, w)
		}
	}
}

func TestLimiterReset(t *testing.T) {
	t.Parallel()

	l := NewLimiter(1, time.Minute)
	now := time.Now()

	l.CheckAt("user:y", now)
	l.Reset("user:y")
	if d := l.CheckAt("user:y", now); !d.Allowed {
		t.Fatal("request after Reset denied")
	}
}
