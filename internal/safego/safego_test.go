package safego

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestGo_RunsFunction(t *testing.T) {
	var ran atomic.Bool
	Go(func() { ran.Store(true) })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !ran.Load() {
		t.Error("function did not run")
	}
}

func TestGo_RecoversPanic(t *testing.T) {
	Go(func() { panic("intentional panic in test") })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := Wait(ctx); err != nil {
		t.Fatalf("Wait after panic: %v", err)
	}
}

func TestWait_HonoursContext(t *testing.T) {
	release := make(chan struct{})
	Go(func() { <-release })
	defer func() {
		close(release)
		_ = Wait(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Wait = %v, want context.DeadlineExceeded", err)
	}
}
