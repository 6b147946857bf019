package reasoning

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Policy bounds the retry envelope around one reasoning call.
// MaxAttempts counts total calls, not just retries: MaxAttempts=2
// means one original call plus at most one retry.
type Policy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration

	// Timer overrides the backoff clock. Nil uses the real clock.
	Timer backoff.Timer
}

// DefaultPolicy is the stock retry envelope: two total attempts, 2s
// initial backoff doubling up to a 60s cap.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       2,
		InitialBackoff:    2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        60 * time.Second,
	}
}

// WithRetry runs op under pol, retrying failures classified as
// rate-limiting or transient unavailability and propagating everything
// else immediately. After exhausting the attempt budget the last
// failure is surfaced as a typed *Error matching its class. The retry
// policy is applied at the call site so it stays visible in the
// pipeline, not hidden inside the client.
func WithRetry[T any](ctx context.Context, pol Policy, stage string, op func(context.Context) (T, error)) (T, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = pol.InitialBackoff
	eb.Multiplier = pol.BackoffMultiplier
	eb.MaxInterval = pol.MaxBackoff
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0

	retries := pol.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)

	attempts := 0
	operation := func() (T, error) {
		attempts++
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if _, transient := classify(err); transient {
			return v, err
		}
		return v, backoff.Permanent(err)
	}

	notify := func(err error, next time.Duration) {
		log.Warn().
			Str("stage", stage).
			Dur("backoff", next).
			Err(err).
			Msg("reasoning call failed, backing off")
	}

	v, err := backoff.RetryNotifyWithTimerAndData(operation, policy, notify, pol.Timer)
	if err == nil {
		return v, nil
	}
	if kind, transient := classify(err); transient {
		return v, &Error{Kind: kind, Stage: stage, Attempts: attempts, Err: err}
	}
	return v, err
}
