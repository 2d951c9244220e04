package client

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// MaxBackoff caps a single retry wait.
const MaxBackoff = 5 * time.Minute

// Sleeper blocks for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// RetryPolicy retries transport-level failures with exponential backoff.
//
// Only KindNetwork errors are retried. Any HTTP response, whatever its
// status, ends the loop: 429 and 5xx are the caller's decision.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// BaseDelay is the wait before the first retry; it doubles each time.
	BaseDelay time.Duration

	// Sleep is the backoff wait. Nil uses a context-aware timer.
	Sleep Sleeper

	Logger *zerolog.Logger
}

// DefaultRetryPolicy returns 3 retries waiting 1s, 2s, then 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		Sleep:      sleepContext,
	}
}

// Backoff returns the wait before retry number attempt+1: BaseDelay * 2^attempt,
// capped at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt && d < MaxBackoff; i++ {
		d *= 2
	}
	return min(d, MaxBackoff)
}

// Do calls send until it returns a response, a non-network error, or the
// retry budget is spent. It makes at most MaxRetries+1 attempts.
func (p RetryPolicy) Do(ctx context.Context, send func(context.Context) (*Response, error)) (*Response, error) {
	logger := p.logger()
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		resp, err := send(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info().
					Int("attempt", attempt+1).
					Msg("Request succeeded after retry")
			}
			return resp, nil
		}

		if !IsNetwork(err) {
			return nil, err
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, cancelledError(ctx.Err(), lastErr)
		}

		if attempt >= p.MaxRetries {
			break
		}

		delay := p.Backoff(attempt)
		retriesTotal.Inc()
		retryBackoffSeconds.Observe(delay.Seconds())

		logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("Network failure, retrying after backoff")

		if err := sleep(ctx, delay); err != nil {
			logger.Warn().
				Int("attempt", attempt+1).
				Msg("Context cancelled during retry backoff")
			return nil, cancelledError(err, lastErr)
		}
	}

	attempts := p.MaxRetries + 1
	retryExhaustedTotal.Inc()
	logger.Error().
		Err(lastErr).
		Int("attempts", attempts).
		Msg("Retry attempts exhausted")

	return nil, &Error{
		Kind:    KindNetwork,
		Message: fmt.Sprintf("request failed after %d attempts", attempts),
		Err:     fmt.Errorf("%w: %w", ErrRetryExhausted, lastErr),
	}
}

func (p RetryPolicy) logger() *zerolog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

func cancelledError(ctxErr, lastErr error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: "request cancelled",
		Err:     fmt.Errorf("%w: %w: %w", ErrContextCancelled, ctxErr, lastErr),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
