package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowDrainsBurst(t *testing.T) {
	tb := NewTokenBucket(3, 0.001)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("token %d should be available", i)
		}
	}
	if tb.Allow() {
		t.Fatal("bucket should be empty")
	}
}

func TestWaitRefills(t *testing.T) {
	tb := NewTokenBucket(1, 100)
	if !tb.Allow() {
		t.Fatal("initial token should be available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("expected a refill within the deadline, got %v", err)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	tb := NewTokenBucket(1, 0.001)
	tb.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tb.Wait(ctx); err == nil {
		t.Fatal("expected a context deadline error")
	}
}
