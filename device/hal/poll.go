package hal

import (
	"context"
	"fmt"
	"time"

	"github.com/ardnew/usbdpower/pkg"
)

// Poller blocks the caller until cond reports true.
//
// cond is the capability that reads current hardware status; the Poller
// decides how often to call it and whether to give up.
type Poller interface {
	Wait(ctx context.Context, cond func() bool) error
}

// PollerFunc adapts a function to the Poller interface.
type PollerFunc func(ctx context.Context, cond func() bool) error

// Wait calls f(ctx, cond).
func (f PollerFunc) Wait(ctx context.Context, cond func() bool) error {
	return f(ctx, cond)
}

// Spin polls cond back to back with no timeout, no yield, and no regard for
// ctx. It returns only once cond is true, so a condition the hardware never
// reaches hangs the caller. This matches the bring-up sequence on silicon,
// where recovery from a stuck peripheral is left to a watchdog.
type Spin struct{}

// Wait spins until cond returns true. The returned error is always nil.
func (Spin) Wait(_ context.Context, cond func() bool) error {
	for !cond() {
	}
	return nil
}

// Bounded polls cond until it is true, MaxPolls attempts have been made,
// Timeout has elapsed, or ctx is done. Zero values for MaxPolls and Timeout
// disable that bound. Interval is the sleep between attempts; zero polls
// back to back.
type Bounded struct {
	MaxPolls int
	Timeout  time.Duration
	Interval time.Duration
}

// Wait polls cond within the configured bounds. It returns an error
// wrapping pkg.ErrWaitTimeout when a bound is hit first.
func (b Bounded) Wait(ctx context.Context, cond func() bool) error {
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	var tick *time.Ticker
	if b.Interval > 0 {
		tick = time.NewTicker(b.Interval)
		defer tick.Stop()
	}

	for n := 1; ; n++ {
		if cond() {
			return nil
		}
		if b.MaxPolls > 0 && n >= b.MaxPolls {
			return fmt.Errorf("%w: gave up after %d polls", pkg.ErrWaitTimeout, n)
		}
		if tick == nil {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", pkg.ErrWaitTimeout, ctx.Err())
			default:
			}
			continue
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", pkg.ErrWaitTimeout, ctx.Err())
		case <-tick.C:
		}
	}
}

// Unbounded reports whether b places no limit at all on the wait.
func (b Bounded) Unbounded() bool {
	return b.MaxPolls == 0 && b.Timeout == 0
}

var (
	_ Poller = Spin{}
	_ Poller = Bounded{}
	_ Poller = PollerFunc(nil)
)
