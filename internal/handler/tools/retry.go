package tools

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/brontoio/bronto-mcp-server/internal/client"
)

const (
	retryDelay  = 500 * time.Millisecond
	maxAttempts = 2
)

// withRetry applies the transport retry policy at the handler boundary:
// exactly one retry with a fixed delay on rate limiting or timeout.
// Authentication and bad-request failures are permanent, they indicate a
// caller or credential fault that a retry cannot fix.
func withRetry[T any](ctx context.Context, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !client.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(backoff.NewConstantBackOff(retryDelay)), backoff.WithMaxTries(maxAttempts))
}
