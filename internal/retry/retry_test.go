package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseDelay:       time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffMultiple: 2.0,
	}
}

func retryOnAnyError(err error, statusCode int, _ []byte) bool {
	return err != nil || statusCode >= 500
}

// TestDo_SucceedsAfterRetries recovers from transient failures.
func TestDo_SucceedsAfterRetries(t *testing.T) {
	attempts := 0
	result, err := Do(context.Background(), Options{
		Config:       fastConfig(),
		ErrorChecker: retryOnAnyError,
		APIName:      "test",
	}, func(attempt int) Attempt[string] {
		attempts++
		if attempts < 3 {
			return Attempt[string]{Err: errors.New("flaky")}
		}
		return Attempt[string]{Result: "ok", StatusCode: 200}
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if result != "ok" {
		t.Errorf("Expected ok, got %q", result)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

// TestDo_NonRetryableStopsImmediately: the checker gates retries.
func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("bad request")
	attempts := 0
	_, err := Do(context.Background(), Options{
		Config: fastConfig(),
		ErrorChecker: func(err error, statusCode int, _ []byte) bool {
			return false
		},
		APIName: "test",
	}, func(attempt int) Attempt[string] {
		attempts++
		return Attempt[string]{Err: fatal}
	})

	if !errors.Is(err, fatal) {
		t.Fatalf("Expected the original error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

// TestDo_ExhaustedBudget returns ExhaustedError when every attempt was a
// retryable status with no hard error.
func TestDo_ExhaustedBudget(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), Options{
		Config:       fastConfig(),
		ErrorChecker: retryOnAnyError,
		APIName:      "test",
	}, func(attempt int) Attempt[string] {
		attempts++
		return Attempt[string]{StatusCode: 503}
	})

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Expected ExhaustedError, got %v", err)
	}
	if exhausted.LastStatusCode != 503 {
		t.Errorf("Expected last status 503, got %d", exhausted.LastStatusCode)
	}
	if attempts != 4 {
		t.Errorf("Expected 4 attempts (1 + 3 retries), got %d", attempts)
	}
}

// TestDo_ContextCanceledDuringBackoff aborts the wait.
func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	_, err := Do(ctx, Options{
		Config: Config{
			MaxRetries:      2,
			BaseDelay:       time.Second,
			MaxDelay:        time.Second,
			BackoffMultiple: 2.0,
		},
		ErrorChecker: retryOnAnyError,
		APIName:      "test",
	}, func(attempt int) Attempt[string] {
		cancel()
		return Attempt[string]{Err: errors.New("flaky")}
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

// TestConfig_DelayGrowthCapped: the backoff doubles then hits MaxDelay.
func TestConfig_DelayGrowthCapped(t *testing.T) {
	cfg := Config{
		BaseDelay:       100 * time.Millisecond,
		MaxDelay:        300 * time.Millisecond,
		BackoffMultiple: 2.0,
	}

	if got := cfg.calculateDelay(0); got != 100*time.Millisecond {
		t.Errorf("Attempt 0: expected 100ms, got %v", got)
	}
	if got := cfg.calculateDelay(1); got != 200*time.Millisecond {
		t.Errorf("Attempt 1: expected 200ms, got %v", got)
	}
	if got := cfg.calculateDelay(3); got != 300*time.Millisecond {
		t.Errorf("Attempt 3: expected the 300ms cap, got %v", got)
	}
}
