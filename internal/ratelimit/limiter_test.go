package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWaitUnlimitedByDefault(t *testing.T) {
	l := New(Config{})

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("unlimited limiter blocked for %v", elapsed)
	}
}

func TestWaitPacesRequests(t *testing.T) {
	// 20 RPS and burst 1: the second token arrives after ~50ms.
	l := New(Config{RPS: 20, Burst: 1})

	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("second token granted too early: %v", elapsed)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	l := New(Config{RPS: 0.001, Burst: 1})
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("expected context error while waiting for a token")
	}
}

func TestReserveDoesNotConsume(t *testing.T) {
	l := New(Config{RPS: 20, Burst: 1})

	if d := l.Reserve(); d != 0 {
		t.Fatalf("expected immediate token, got delay %v", d)
	}
	// The probe above must not have spent the token.
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
}
