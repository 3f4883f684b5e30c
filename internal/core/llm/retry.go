package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neilberkman/docchat/internal/core/logging"
)

// Retrying bounds each attempt with a timeout and retries failures
type Retrying struct {
	next    Responder
	retries int
	timeout time.Duration
	backoff time.Duration
}

// WithRetry wraps r so every attempt gets timeout and failures are retried
// up to retries more times. The final error wraps ErrResponseFailed.
func WithRetry(r Responder, retries int, timeout time.Duration) *Retrying {
	return &Retrying{
		next:    r,
		retries: retries,
		timeout: timeout,
		backoff: 500 * time.Millisecond,
	}
}

func (r *Retrying) Name() string {
	return r.next.Name()
}

func (r *Retrying) Answer(ctx context.Context, req Request) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrResponseFailed, ctx.Err())
			case <-time.After(r.backoff * time.Duration(attempt)):
			}
		}

		answer, err := r.attempt(ctx, req)
		if err == nil {
			return answer, nil
		}
		lastErr = err

		// The caller gave up; retrying cannot help
		if ctx.Err() != nil {
			break
		}

		logging.Warn().
			Err(err).
			Str("responder", r.next.Name()).
			Int("attempt", attempt+1).
			Msg("answer attempt failed")
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		return "", fmt.Errorf("%w: timed out after %s", ErrResponseFailed, r.timeout)
	}
	return "", fmt.Errorf("%w: %v", ErrResponseFailed, lastErr)
}

func (r *Retrying) attempt(ctx context.Context, req Request) (string, error) {
	if r.timeout <= 0 {
		return r.next.Answer(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.next.Answer(ctx, req)
}
