// Package retry implements bounded exponential backoff for outbound API
// calls. Tier backends use it so that one transient upstream hiccup doesn't
// immediately surface as a tier failure.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Config holds the configuration for retry logic
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultConfig returns a sensible default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseDelay:       200 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// calculateDelay computes the delay for the given attempt using exponential backoff
func (c Config) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.BaseDelay) * math.Pow(c.BackoffMultiple, float64(attempt)))
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// Attempt is one try of the underlying call. StatusCode and Body feed the
// retryable-error check; both may be zero-valued for transport errors.
type Attempt[T any] struct {
	Result     T
	StatusCode int
	Body       []byte
	Err        error
}

// Func performs the call being retried.
type Func[T any] func(attempt int) Attempt[T]

// ErrorChecker decides whether a failed attempt should be retried.
type ErrorChecker func(err error, statusCode int, body []byte) bool

// Logger receives one line per retry decision. Usually slog-backed.
type Logger func(format string, args ...any)

// Options configures retry behavior
type Options struct {
	Config       Config
	ErrorChecker ErrorChecker
	Logger       Logger
	APIName      string
}

// ExhaustedError is returned when every attempt was retryable and the budget
// ran out without a definitive error.
type ExhaustedError struct {
	APIName        string
	MaxAttempts    int
	LastStatusCode int
	LastBody       []byte
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry attempts exhausted for %s API after %d tries (last status %d)",
		e.APIName, e.MaxAttempts, e.LastStatusCode)
}

// Do runs fn with the configured backoff until it succeeds, fails with a
// non-retryable error, the context is canceled, or the attempt budget is
// spent.
func Do[T any](ctx context.Context, opts Options, fn Func[T]) (T, error) {
	var zero T
	var last Attempt[T]

	for attempt := 0; attempt <= opts.Config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := opts.Config.calculateDelay(attempt - 1)
			if opts.Logger != nil {
				opts.Logger("%s API retry attempt %d/%d after %v delay",
					opts.APIName, attempt+1, opts.Config.MaxRetries+1, delay)
			}

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		last = fn(attempt)

		retryable := opts.ErrorChecker != nil && opts.ErrorChecker(last.Err, last.StatusCode, last.Body)
		if retryable && attempt < opts.Config.MaxRetries {
			if opts.Logger != nil {
				if last.Err != nil {
					opts.Logger("%s API error (attempt %d/%d): %v",
						opts.APIName, attempt+1, opts.Config.MaxRetries+1, last.Err)
				} else {
					opts.Logger("%s API retryable status %d (attempt %d/%d)",
						opts.APIName, last.StatusCode, attempt+1, opts.Config.MaxRetries+1)
				}
			}
			continue
		}

		if last.Err == nil && !retryable {
			return last.Result, nil
		}
		if last.Err != nil {
			return zero, last.Err
		}
		break
	}

	return zero, &ExhaustedError{
		APIName:        opts.APIName,
		MaxAttempts:    opts.Config.MaxRetries + 1,
		LastStatusCode: last.StatusCode,
		LastBody:       last.Body,
	}
}
