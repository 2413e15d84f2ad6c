package retry

import (
	"context"
	"log/slog"
	"time"

	bursarErrors "github.com/harunnryd/bursar/internal/errors"
)

// Policy is a fixed ladder of pre-attempt delays. One attempt runs per entry,
// so the attempt count equals len(Delays).
type Policy struct {
	Delays []time.Duration
}

// Default matches the gateway contract: three attempts, paced 0s/1s/2s.
func Default() Policy {
	return Policy{Delays: []time.Duration{0, time.Second, 2 * time.Second}}
}

// Do runs fn until it succeeds, the policy is exhausted, or the error is not
// worth retrying. The last error is returned as-is so callers keep its
// category.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error

	for i, delay := range p.Delays {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !bursarErrors.IsRetryable(lastErr) {
			return lastErr
		}

		slog.Warn("Attempt failed",
			"op", op,
			"attempt", i+1,
			"max_attempts", len(p.Delays),
			"error", lastErr,
		)
	}

	return lastErr
}
