/*
guard.go - Mutual exclusion for store mutations

PURPOSE:
  Serializes all mutating operations (upserts and binding commits)
  against the ledger store. Acquisition is bounded: a caller that
  cannot take the guard within the configured wait fails fast with a
  ContentionError instead of blocking indefinitely.

WHY A BOUNDED WAIT?
  The event feed delivers at-least-once. A delivery that times out on
  the guard is simply redelivered by the source; blocking it would
  amplify retries and pile up goroutines behind a slow writer.

READ PATHS:
  Matching selection and cache lookups never take the guard. Any
  operation that then decides to mutate must re-read the cells it
  intends to write after acquiring, and re-validate its precondition.

SEE ALSO:
  - binding.go: Re-read-then-write claim commit under the guard
  - upsert.go: Lookup-then-merge under the guard
*/
package ledger

import (
	"context"
	"time"
)

// DefaultGuardWait bounds guard acquisition when no wait is configured.
const DefaultGuardWait = 5 * time.Second

// Guard is a process-wide mutex with bounded acquisition. The zero
// value is not usable; construct with NewGuard.
type Guard struct {
	sem  chan struct{}
	wait time.Duration
}

// NewGuard creates a guard with the given acquisition bound.
// A non-positive wait falls back to DefaultGuardWait.
func NewGuard(wait time.Duration) *Guard {
	if wait <= 0 {
		wait = DefaultGuardWait
	}
	sem := make(chan struct{}, 1)
	sem <- struct{}{}
	return &Guard{sem: sem, wait: wait}
}

// Acquire takes the guard, waiting at most the configured bound.
// Returns a ContentionError on timeout and the context error if ctx
// is done first. On success the caller must call Release.
func (g *Guard) Acquire(ctx context.Context) error {
	timer := time.NewTimer(g.wait)
	defer timer.Stop()

	select {
	case <-g.sem:
		return nil
	case <-timer.C:
		return &ContentionError{Waited: g.wait}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns the guard. Must be called exactly once per
// successful Acquire, on every exit path.
func (g *Guard) Release() {
	select {
	case g.sem <- struct{}{}:
	default:
		panic("ledger: guard released without acquire")
	}
}
