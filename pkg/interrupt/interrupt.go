// Package interrupt defines the sampler's cooperative cancellation hook
// and one concrete implementation of it.
//
// The sampler core only ever depends on PollFunc — host integration
// beyond that is out of scope. FileWatcher is an optional, additive
// convenience built on fsnotify-based external-change detection.
package interrupt

import (
	"context"
)

// PollFunc is the host-provided cancellation hook, invoked by the
// supervisor at roughly 1 Hz while sampler threads run. Returning a
// non-nil error requests a clean shutdown; it is not itself an error
// condition — an interrupted run exits cleanly rather than failing.
type PollFunc func(ctx context.Context) error

// Never is a PollFunc that never requests a stop, for callers that drive
// cancellation solely through ctx.
func Never(ctx context.Context) error {
	return nil
}

// FromContext adapts a plain context.Context into a PollFunc: a stop is
// requested once the context is done.
func FromContext() PollFunc {
	return func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
}
