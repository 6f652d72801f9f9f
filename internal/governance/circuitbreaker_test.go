package governance

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute})

	if cb.Allow() != nil {
		t.Fatal("closed circuit should allow calls")
	}
	cb.RecordFailure()
	if cb.State() != StateClosed {
		t.Fatalf("one failure should not open the circuit, state %s", cb.State())
	}
	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("expected open after 2 failures, state %s", cb.State())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("open circuit should reject calls with ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute})

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()

	if cb.State() != StateClosed {
		t.Errorf("interleaved success should reset the failure streak, state %s", cb.State())
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:         1,
		Timeout:             5 * time.Millisecond,
		MaxHalfOpenRequests: 2,
	})

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("expected open, state %s", cb.State())
	}

	time.Sleep(10 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open after timeout, state %s", cb.State())
	}

	for i := 0; i < 2; i++ {
		if cb.Allow() != nil {
			t.Fatalf("half-open probe %d should be admitted", i)
		}
		cb.RecordSuccess()
	}
	if cb.State() != StateClosed {
		t.Errorf("expected closed after successful probes, state %s", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		Timeout:     5 * time.Millisecond,
	})

	cb.RecordFailure()
	time.Sleep(10 * time.Millisecond)

	if cb.Allow() != nil {
		t.Fatal("half-open circuit should admit a probe")
	}
	cb.RecordFailure()

	if cb.State() != StateOpen {
		t.Errorf("failed probe should reopen the circuit, state %s", cb.State())
	}
	if cb.Allow() == nil {
		t.Error("reopened circuit should reject calls")
	}
}

func TestCircuitBreakerHalfOpenLimitsInFlightProbes(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:         1,
		Timeout:             5 * time.Millisecond,
		MaxHalfOpenRequests: 1,
	})

	cb.RecordFailure()
	time.Sleep(10 * time.Millisecond)

	if cb.Allow() != nil {
		t.Fatal("first half-open probe should be admitted")
	}
	if cb.Allow() == nil {
		t.Error("second concurrent probe should be rejected")
	}
}

func TestCircuitBreakerDefaultsApplied(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	if cb.config.MaxFailures != 5 || cb.config.Timeout != 30*time.Second || cb.config.MaxHalfOpenRequests != 3 {
		t.Errorf("unexpected normalized config: %+v", cb.config)
	}
}
