package browser

import (
	"context"
	"time"
)

// minSampleWindow keeps a single sample from being starved by a nearly spent deadline
const minSampleWindow = 250 * time.Millisecond

// retry samples until ok accepts a value or timeout elapses. It returns the
// last successful sample, whether ok accepted it, and the last sample error
// (or the context error when ctx ended first).
func retry[T any](ctx context.Context, timeout, interval time.Duration, sample func(context.Context) (T, error), ok func(T) bool) (T, bool, error) {
	var last T
	var lastErr error
	deadline := time.Now().Add(timeout)

	for {
		window := time.Until(deadline)
		if window < minSampleWindow {
			window = minSampleWindow
		}
		sampleCtx, cancel := context.WithTimeout(ctx, window)
		v, err := sample(sampleCtx)
		cancel()

		if err == nil {
			last = v
			lastErr = nil
			if ok(v) {
				return v, true, nil
			}
		} else {
			lastErr = err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return last, false, ctxErr
		}
		if !time.Now().Before(deadline) {
			return last, false, lastErr
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, false, ctx.Err()
		case <-timer.C:
		}
	}
}
