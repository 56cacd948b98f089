package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Backoff schedule for transient upstream failures.
const (
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxRetries  = 3
	overloadFinalWait  = 30 * time.Second
	rateLimitFinalWait = 60 * time.Second
)

// Sleeper suspends the flow; tests inject a recording fake.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepFor(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Delay returns the backoff before re-issuing attempt n (0-based):
// baseDelay * 2^n.
func Delay(attempt int, baseDelay time.Duration) time.Duration {
	return baseDelay * (1 << attempt)
}

// Retrier wraps calls to the contact-extraction service with
// exponentially-backed-off retries for throttling failures.
type Retrier struct {
	baseDelay  time.Duration
	maxRetries int
	sleep      Sleeper
	logger     *slog.Logger
}

func NewRetrier(baseDelay time.Duration, maxRetries int, logger *slog.Logger) *Retrier {
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{baseDelay: baseDelay, maxRetries: maxRetries, sleep: sleepFor, logger: logger}
}

// Call classification outcomes.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeTransient
	outcomeFatal
)

func classify(err error) outcome {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrOverloaded):
		return outcomeTransient
	default:
		return outcomeFatal
	}
}

// Do re-issues call until it succeeds or retries are exhausted. Throttling
// failures back off as baseDelay * 2^attempt; once fast retries run out, one
// final long wait (30s for overload, 60s for rate limiting) buys a last
// attempt. Past that the caller gets an empty list, never an error.
//
// Page-limit rejections and other fatal failures are returned immediately;
// the caller decides whether to chunk or abort.
func (r *Retrier) Do(ctx context.Context, call func(ctx context.Context) ([]RawContact, error)) ([]RawContact, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		contacts, err := call(ctx)
		switch classify(err) {
		case outcomeSuccess:
			return contacts, nil
		case outcomeFatal:
			// includes page-limit rejections: chunking territory, not retry territory
			return nil, err
		}

		lastErr = err
		d := Delay(attempt, r.baseDelay)
		r.logger.Warn("llm.retry.backoff",
			"attempt", attempt, "delay_ms", d.Milliseconds(), "error", err)
		if sleepErr := r.sleep(ctx, d); sleepErr != nil {
			return nil, sleepErr
		}
	}

	// One long cooldown, then a final attempt.
	finalWait := overloadFinalWait
	if errors.Is(lastErr, ErrRateLimited) {
		finalWait = rateLimitFinalWait
	}
	r.logger.Warn("llm.retry.final_wait",
		"delay_ms", finalWait.Milliseconds(), "error", lastErr)
	if sleepErr := r.sleep(ctx, finalWait); sleepErr != nil {
		return nil, sleepErr
	}

	contacts, err := call(ctx)
	switch classify(err) {
	case outcomeSuccess:
		return contacts, nil
	case outcomeFatal:
		return nil, err
	}

	r.logger.Error("llm.retry.exhausted", "error", err)
	return []RawContact{}, nil
}
