package loader

import (
	"context"
	"time"
)

// Retry is a capped exponential backoff.
type Retry struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
	// Timeout bounds each attempt. Zero means no per-attempt deadline.
	Timeout time.Duration
}

// DefaultRetry makes five attempts starting at 200ms, doubling up to 5s.
var DefaultRetry = Retry{Attempts: 5, Initial: 200 * time.Millisecond, Max: 5 * time.Second, Timeout: 30 * time.Second}

// Do calls fn until it succeeds, attempts run out or ctx is done. onFail sees
// every failed attempt.
func (r Retry) Do(ctx context.Context, fn func(context.Context) error, onFail func(attempt int, err error)) error {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := r.Initial
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		}
		err = fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if onFail != nil {
			onFail(attempt, err)
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if r.Max > 0 && backoff > r.Max {
			backoff = r.Max
		}
	}
	return err
}
