package breaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestCircuitBreakerClosed verifies that the circuit breaker allows requests
// to pass through when in the closed state (normal operation).
func TestCircuitBreakerClosed(t *testing.T) {
	cb := NewCircuitBreaker()
	ctx := context.Background()

	// Successful operation should work
	successFunc := func() (interface{}, error) {
		return "success", nil
	}

	result, err := cb.Execute(ctx, successFunc)
	if err != nil {
		t.Fatalf("Expected successful execution in closed state, got error: %v", err)
	}

	if result != "success" {
		t.Fatalf("Expected result 'success', got: %v", result)
	}

	// Circuit should still be closed
	state := cb.State()
	if state != "closed" {
		t.Fatalf("Expected circuit to be closed, got: %s", state)
	}
}

// TestCircuitBreakerOpen verifies that after 3 consecutive failures,
// the circuit breaker transitions to the open state and rejects requests.
func TestCircuitBreakerOpen(t *testing.T) {
	cb := NewCircuitBreaker()
	ctx := context.Background()

	// Function that always fails
	failFunc := func() (interface{}, error) {
		return nil, errors.New("operation failed")
	}

	// Execute 3 times to trigger circuit breaker (maxFailures = 3)
	for i := 0; i < 3; i++ {
		_, err := cb.Execute(ctx, failFunc)
		if err == nil {
			t.Fatalf("Expected error on attempt %d", i+1)
		}
	}

	// Circuit should now be open
	state := cb.State()
	if state != "open" {
		t.Fatalf("Expected circuit to be open after 3 failures, got: %s", state)
	}

	// Further requests should be rejected immediately
	_, err := cb.Execute(ctx, failFunc)
	if err == nil {
		t.Fatal("Expected circuit breaker to reject request in open state")
	}
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Expected ErrCircuitOpen, got: %v", err)
	}
}

// TestCircuitBreakerHalfOpenRecovery verifies that after the timeout period
// the circuit transitions to half-open and closes again after enough
// consecutive successes.
func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(CircuitBreakerConfig{
		MaxFailures:          3,
		Timeout:              100 * time.Millisecond, // Short timeout for testing
		HalfOpenMaxSuccesses: 2,
	})
	ctx := context.Background()

	failFunc := func() (interface{}, error) {
		return nil, errors.New("operation failed")
	}
	successFunc := func() (interface{}, error) {
		return "ok", nil
	}

	// Trigger circuit breaker to open
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(ctx, failFunc)
	}
	if state := cb.State(); state != "open" {
		t.Fatalf("Expected circuit to be open, got: %s", state)
	}

	// Wait past the open timeout so the breaker allows probes again
	time.Sleep(150 * time.Millisecond)

	// Enough consecutive successes should close the circuit
	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(ctx, successFunc); err != nil {
			t.Fatalf("Expected success during half-open probe %d, got: %v", i+1, err)
		}
	}

	if state := cb.State(); state != "closed" {
		t.Fatalf("Expected circuit to close after successful probes, got: %s", state)
	}
}

// TestCircuitBreakerCancelledContext verifies that an already-cancelled
// context is rejected without invoking the wrapped function.
func TestCircuitBreakerCancelledContext(t *testing.T) {
	cb := NewCircuitBreaker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := cb.Execute(ctx, func() (interface{}, error) {
		called = true
		return nil, nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got: %v", err)
	}
	if called {
		t.Fatal("Expected wrapped function not to be invoked with cancelled context")
	}
}

// TestCircuitBreakerMetrics verifies that success and failure counts are tracked.
func TestCircuitBreakerMetrics(t *testing.T) {
	cb := NewCircuitBreaker()
	ctx := context.Background()

	_, _ = cb.Execute(ctx, func() (interface{}, error) { return "ok", nil })
	_, _ = cb.Execute(ctx, func() (interface{}, error) { return nil, errors.New("boom") })
	_, _ = cb.Execute(ctx, func() (interface{}, error) { return "ok", nil })

	m := cb.Metrics()
	if m.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", m.TotalRequests)
	}
	if m.TotalSuccesses != 2 {
		t.Errorf("TotalSuccesses = %d, want 2", m.TotalSuccesses)
	}
	if m.TotalFailures != 1 {
		t.Errorf("TotalFailures = %d, want 1", m.TotalFailures)
	}
}

// TestCircuitBreakerHealthCheck verifies health check timeout behavior.
func TestCircuitBreakerHealthCheck(t *testing.T) {
	cb := NewCircuitBreaker()

	// Fast check passes
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := cb.HealthCheck(ctx, func() error { return nil }); err != nil {
		t.Fatalf("Expected health check to pass, got: %v", err)
	}

	// Slow check is cut off by the context deadline
	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	err := cb.HealthCheck(ctx2, func() error {
		time.Sleep(500 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected DeadlineExceeded, got: %v", err)
	}
}
