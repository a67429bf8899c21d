package tools

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Minute)
	fail := errors.New("upstream down")

	for i := 0; i < 3; i++ {
		_ = cb.Call(func() error { return fail })
	}
	if !cb.IsOpen() {
		t.Fatalf("expected circuit open after 3 failures, state=%s", cb.State())
	}

	// While open, calls are rejected without executing.
	executed := false
	err := cb.Call(func() error { executed = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if executed {
		t.Errorf("function must not run while circuit is open")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Minute)
	fail := errors.New("upstream down")

	_ = cb.Call(func() error { return fail })
	_ = cb.Call(func() error { return fail })
	_ = cb.Call(func() error { return nil })
	_ = cb.Call(func() error { return fail })
	_ = cb.Call(func() error { return fail })

	if cb.IsOpen() {
		t.Errorf("success between failures should reset the counter")
	}
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, time.Second)
	_ = cb.Call(func() error { return errors.New("boom") })
	if !cb.IsOpen() {
		t.Fatalf("expected open state")
	}

	// Force the timeout window to elapse.
	cb.mu.Lock()
	cb.lastFailureTime = time.Now().Add(-2 * time.Second)
	cb.mu.Unlock()

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return nil }); err != nil {
			t.Fatalf("half-open test call %d failed: %v", i, err)
		}
	}
	if cb.State() != StateClosed {
		t.Errorf("expected closed after successful probes, got %s", cb.State())
	}
}

func TestCircuitBreaker_Stats(t *testing.T) {
	cb := NewCircuitBreaker("test", 5, time.Minute)
	_ = cb.Call(func() error { return nil })
	_ = cb.Call(func() error { return errors.New("x") })

	s := cb.GetStats()
	if s.TotalRequests != 2 || s.TotalSuccesses != 1 || s.TotalFailures != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if s.SuccessRate != 0.5 {
		t.Errorf("expected success rate 0.5, got %f", s.SuccessRate)
	}
}
