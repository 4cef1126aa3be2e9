package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/Keksclan/rawrfetch/ratelimit"
)

func TestLimiter_AllowUnderLimit(t *testing.T) {
	l := ratelimit.NewLimiter(1, 5)
	for i := range 5 {
		if !l.Allow() {
			t.Fatalf("expected Allow() == true for request %d", i)
		}
	}
}

func TestLimiter_BlocksWhenBurstExhausted(t *testing.T) {
	l := ratelimit.NewLimiter(0.001, 2)
	l.Allow()
	l.Allow()

	if l.Allow() {
		t.Fatal("expected Allow() == false after burst exhausted")
	}
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	l := ratelimit.NewLimiter(0.001, 1)
	l.Allow()

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Fatal("expected Wait to fail once the context deadline cannot be met")
	}
}

func TestLimiter_DisabledNeverBlocks(t *testing.T) {
	l := ratelimit.NewLimiter(0, 0)
	for i := range 1000 {
		if !l.Allow() {
			t.Fatalf("disabled limiter rejected request %d", i)
		}
	}
	if err := l.Wait(t.Context()); err != nil {
		t.Fatalf("Wait on disabled limiter: %v", err)
	}
}
