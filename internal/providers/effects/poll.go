package effects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photobooth/internal/domain"
)

// checkFunc reports whether the remote job is finished. Returning an error
// stops polling immediately.
type checkFunc func(ctx context.Context, attempt int) (bool, error)

// poll calls check up to p.Attempts times, sleeping p.Interval between
// attempts. Exhaustion and context expiry are both Timeout.
func poll(ctx context.Context, provider string, p PollPolicy, check checkFunc) error {
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		done, err := check(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt == p.Attempts {
			break
		}
		timer := time.NewTimer(p.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &domain.Error{
				Kind:     domain.KindTimeout,
				Provider: provider,
				Message:  fmt.Sprintf("cancelled after %d attempts", attempt),
				Err:      ctxCause(ctx),
			}
		case <-timer.C:
		}
	}
	return &domain.Error{
		Kind:     domain.KindTimeout,
		Provider: provider,
		Message:  fmt.Sprintf("not ready after %d attempts", p.Attempts),
	}
}

func ctxCause(ctx context.Context) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	return errors.New("context done")
}
