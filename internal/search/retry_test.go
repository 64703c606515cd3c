package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"ottermusic/searchservice/internal/domain"
)

func TestRetryWithBackoff_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryWithBackoff_SucceedsOnNthAttempt(t *testing.T) {
	var calls atomic.Int32
	transientErr := fmt.Errorf("connection reset")
	err := RetryWithBackoff(context.Background(), DefaultRetryConfig(), func() error {
		n := calls.Add(1)
		if n < 3 {
			return transientErr
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error after retries, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestRetryWithBackoff_ExhaustsAllAttempts(t *testing.T) {
	transientErr := fmt.Errorf("timeout")
	calls := 0
	cfg := RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}
	err := RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		return transientErr
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if err.Error() != "timeout" {
		t.Fatalf("expected last error 'timeout', got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
	}
	err := RetryWithBackoff(ctx, cfg, func() error {
		calls++
		if calls == 1 {
			cancel()
		}
		return fmt.Errorf("connection reset")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestRetryWithBackoff_NonTransientErrorFailsImmediately(t *testing.T) {
	nonTransientErr := fmt.Errorf("parse error: invalid JSON")
	calls := 0
	cfg := RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
	}
	err := RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		return nonTransientErr
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call (non-transient should not retry), got %d", calls)
	}
}

func TestExponentialBlockDuration(t *testing.T) {
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{3, 2 * time.Minute},  // 2min × 2^0 = 2min
		{4, 4 * time.Minute},  // 2min × 2^1 = 4min
		{5, 8 * time.Minute},  // 2min × 2^2 = 8min
		{6, 15 * time.Minute}, // 2min × 2^3 = 16min → capped at 15min
		{7, 15 * time.Minute}, // capped
		{10, 15 * time.Minute},
	}
	for _, tt := range tests {
		got := exponentialBlockDuration(tt.failures)
		if got != tt.want {
			t.Errorf("exponentialBlockDuration(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestCircuitBreakerExponentialBlock(t *testing.T) {
	svc := NewService([]Provider{
		&fakeProvider{name: domain.SourceJoox},
	}, 2*time.Second)

	source := domain.SourceJoox
	baseTime := time.Now()
	testErr := fmt.Errorf("connection timeout")

	for i := 0; i < sourceFailureThreshold; i++ {
		svc.recordSourceResult(source, "test", testErr, 100*time.Millisecond, baseTime)
	}

	blocked, until, _ := svc.isSourceBlocked(source, baseTime)
	if !blocked {
		t.Fatal("expected source to be blocked after threshold failures")
	}
	if actual := until.Sub(baseTime); actual != sourceBlockBase {
		t.Fatalf("first block: expected %v, got %v", sourceBlockBase, actual)
	}

	afterBlock := until.Add(1 * time.Second)
	blocked, _, _ = svc.isSourceBlocked(source, afterBlock)
	if blocked {
		t.Fatal("source should be unblocked after block expires")
	}

	svc.recordSourceResult(source, "test", testErr, 100*time.Millisecond, afterBlock)
	blocked, until, _ = svc.isSourceBlocked(source, afterBlock)
	if !blocked {
		t.Fatal("expected source to be blocked after additional failure")
	}
	if actual := until.Sub(afterBlock); actual != 4*time.Minute {
		t.Fatalf("second block: expected %v, got %v", 4*time.Minute, actual)
	}

	svc.recordSourceResult(source, "test", nil, 50*time.Millisecond, afterBlock.Add(1*time.Second))
	blocked, _, _ = svc.isSourceBlocked(source, afterBlock.Add(2*time.Second))
	if blocked {
		t.Fatal("source should be unblocked after success")
	}

	resetTime := afterBlock.Add(3 * time.Second)
	for i := 0; i < sourceFailureThreshold; i++ {
		svc.recordSourceResult(source, "test", testErr, 100*time.Millisecond, resetTime)
	}
	blocked, until, _ = svc.isSourceBlocked(source, resetTime)
	if !blocked {
		t.Fatal("expected source to be blocked again")
	}
	if actual := until.Sub(resetTime); actual != sourceBlockBase {
		t.Fatalf("block after reset: expected %v, got %v", sourceBlockBase, actual)
	}
}

func TestCancelledCallsDoNotTripBreaker(t *testing.T) {
	svc := NewService([]Provider{&fakeProvider{name: domain.SourceJoox}}, time.Second)
	now := time.Now()
	for i := 0; i < sourceFailureThreshold+2; i++ {
		svc.recordSourceResult(domain.SourceJoox, "x", context.Canceled, time.Millisecond, now)
	}
	if blocked, _, _ := svc.isSourceBlocked(domain.SourceJoox, now); blocked {
		t.Fatal("cancellation must not block a source")
	}
}

type statusError struct {
	code int
}

func (e statusError) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusError) Retryable() bool { return e.code >= 500 || e.code == 429 }

func TestIsTransientErrorClassification(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{fmt.Errorf("wrapped: %w", context.Canceled), false},
		{context.DeadlineExceeded, true},
		{fmt.Errorf("read: connection reset by peer"), true},
		{statusError{code: 503}, true},
		{statusError{code: 429}, true},
		{fmt.Errorf("search: %w", statusError{code: 404}), false},
		{errors.New("decode: invalid character"), false},
	}
	for _, tt := range tests {
		if got := isTransientError(tt.err); got != tt.want {
			t.Errorf("isTransientError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
