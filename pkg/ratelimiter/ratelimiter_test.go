package ratelimiter

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC)
	l := newMemory(2, time.Minute, func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "10.0.0.1")
		if err != nil || !res.Allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i, res.Allowed, err)
		}
	}

	res, _ := l.Allow(ctx, "10.0.0.1")
	if res.Allowed {
		t.Fatalf("third request in window should be rejected")
	}
	if res.RetryAfter != 55*time.Second {
		t.Fatalf("RetryAfter = %v, want 55s", res.RetryAfter)
	}

	other, _ := l.Allow(ctx, "10.0.0.2")
	if !other.Allowed {
		t.Fatalf("keys must be counted independently")
	}

	now = now.Add(time.Minute)
	res, _ = l.Allow(ctx, "10.0.0.1")
	if !res.Allowed || res.Remaining != 1 {
		t.Fatalf("new window should reset count, got %+v", res)
	}
}
