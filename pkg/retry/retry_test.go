package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:   maxRetries,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.MaxRetries)
	}
	if cfg.InitialDelay != 100*time.Millisecond {
		t.Errorf("expected InitialDelay=100ms, got %v", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 5*time.Second {
		t.Errorf("expected MaxDelay=5s, got %v", cfg.MaxDelay)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	callCount := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected no error after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDo_MaxRetriesExhausted(t *testing.T) {
	expectedErr := errors.New("persistent error")
	callCount := 0
	err := Do(context.Background(), fastConfig(2), func() error {
		callCount++
		return expectedErr
	})

	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
	// initial attempt + 2 retries
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{
		MaxRetries:   5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	callCount := 0
	start := time.Now()
	err := Do(ctx, cfg, func() error {
		callCount++
		return errors.New("error")
	})

	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("expected quick cancellation, took %v", elapsed)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"uppercase", errors.New("Connection Refused"), true},
		{"starting up", errors.New("FATAL: the database system is starting up"), true},
		{"telegram 429", errors.New("telegram: 429 Too Many Requests"), true},
		{"telegram 502", errors.New("telegram: 502 Bad Gateway"), true},
		{"bot blocked", errors.New("telegram: 403 Forbidden: bot was blocked by the user"), false},
		{"chat not found", errors.New("telegram: 400 Bad Request: chat not found"), false},
		{"context canceled", context.Canceled, false},
		{"wrapped deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, expected %v", tt.err, got, tt.expected)
			}
		})
	}
}

type declaredErr struct{ retry bool }

func (e declaredErr) Error() string { return "500 declared" }
func (e declaredErr) IsRetryable() bool { return e.retry }

func TestIsRetryable_DeclaredWins(t *testing.T) {
	if IsRetryable(declaredErr{retry: false}) {
		t.Error("declared non-retryable error must not be retried despite its message")
	}
	if !IsRetryable(fmt.Errorf("wrapped: %w", declaredErr{retry: true})) {
		t.Error("wrapped declared retryable error must be retried")
	}
}

type hintedErr struct{ after time.Duration }

func (e hintedErr) Error() string { return "429 too many requests" }
func (e hintedErr) RetryAfter() time.Duration { return e.after }

func TestDoIfRetryable_HonoursRetryAfter(t *testing.T) {
	callCount := 0
	start := time.Now()
	err := DoIfRetryable(context.Background(), fastConfig(1), func() error {
		callCount++
		if callCount == 1 {
			return hintedErr{after: 150 * time.Millisecond}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("expected to wait for retry_after, waited %v", elapsed)
	}
}

func TestDoIfRetryable_NonRetryableError(t *testing.T) {
	expectedErr := errors.New("authentication failed")
	callCount := 0
	err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
		callCount++
		return expectedErr
	})

	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call (no retries), got %d", callCount)
	}
}

func TestDoIfRetryable_EscalatesRepeatedErrors(t *testing.T) {
	cfg := fastConfig(10)
	cfg.MaxSameErrorType = 2

	callCount := 0
	err := DoIfRetryable(context.Background(), cfg, func() error {
		callCount++
		return errors.New("503 service unavailable")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if callCount != 2 {
		t.Errorf("expected escalation after 2 calls, got %d", callCount)
	}
}

func TestDoIfRetryable_NilConfig(t *testing.T) {
	callCount := 0
	err := DoIfRetryable(context.Background(), nil, func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Errorf("expected no error with nil config, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}
