// Package clock abstracts time so the timed phases of the controller (settle
// holds, notices, polling ticks) can run against a manual clock in tests.
package clock

import (
	"context"
	"time"
)

// Clock abstracts time-related functions for easier testing.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Real implements Clock using the standard library.
type Real struct{}

// Now returns the current UTC time.
func (Real) Now() time.Time {
	return time.Now().UTC()
}

// After mirrors time.After while satisfying the Clock interface.
func (Real) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Wait blocks for d on clk or until ctx is done, returning ctx.Err() in the
// latter case. Non-positive durations return immediately.
func Wait(ctx context.Context, clk Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clk.After(d):
		return nil
	}
}
