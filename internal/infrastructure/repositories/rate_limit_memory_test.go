package repositories

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRateLimiter_WindowExhaustion(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryRateLimiter(5, time.Minute)
	limiter.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}

	allowed, err := limiter.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("sixth request must be rejected")
	}

	reset, err := limiter.ResetSeconds(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reset != 60 {
		t.Fatalf("expected 60s until reset, got %d", reset)
	}
}

func TestMemoryRateLimiter_RejectionDoesNotExtendWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryRateLimiter(1, time.Minute)
	limiter.now = func() time.Time { return now }

	ctx := context.Background()
	if allowed, _ := limiter.Allow(ctx, "ip"); !allowed {
		t.Fatalf("first request should be admitted")
	}

	now = now.Add(30 * time.Second)
	if allowed, _ := limiter.Allow(ctx, "ip"); allowed {
		t.Fatalf("second request should be rejected")
	}
	reset, _ := limiter.ResetSeconds(ctx, "ip")
	if reset != 30 {
		t.Fatalf("rejection must not move the window, got reset %d", reset)
	}
}

func TestMemoryRateLimiter_WindowExpiryReadmits(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryRateLimiter(1, time.Minute)
	limiter.now = func() time.Time { return now }

	ctx := context.Background()
	limiter.Allow(ctx, "ip")
	if allowed, _ := limiter.Allow(ctx, "ip"); allowed {
		t.Fatalf("window should be exhausted")
	}

	now = now.Add(time.Minute)
	allowed, err := limiter.Allow(ctx, "ip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatalf("expired window must readmit")
	}
}

func TestMemoryRateLimiter_IdentifiersAreIndependent(t *testing.T) {
	limiter := NewMemoryRateLimiter(1, time.Minute)
	ctx := context.Background()

	limiter.Allow(ctx, "1.1.1.1")
	if allowed, _ := limiter.Allow(ctx, "1.1.1.1"); allowed {
		t.Fatalf("first identifier should be exhausted")
	}
	if allowed, _ := limiter.Allow(ctx, "2.2.2.2"); !allowed {
		t.Fatalf("second identifier must have its own window")
	}
}

func TestMemoryRateLimiter_ResetSecondsNoWindow(t *testing.T) {
	limiter := NewMemoryRateLimiter(5, time.Minute)
	reset, err := limiter.ResetSeconds(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reset != 0 {
		t.Fatalf("expected 0 for absent window, got %d", reset)
	}
}
