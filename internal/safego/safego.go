// Package safego provides a panic-recovering goroutine launcher for
// fire-and-forget work such as audit writes and best-effort emails.
package safego

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

var inflight sync.WaitGroup

// Go launches fn in a new goroutine. A panic in fn is recovered and logged
// instead of crashing the process. The goroutine is tracked so Wait can drain
// it during shutdown.
func Go(fn func()) {
	inflight.Add(1)
	go func() {
		defer inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine",
					"panic", r, "stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}

// Wait blocks until every goroutine started by Go has returned or ctx is
// done, whichever comes first.
func Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
