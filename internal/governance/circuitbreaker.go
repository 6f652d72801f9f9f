package governance

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState represents the state of a circuit breaker.
type CircuitState string

const (
	// StateClosed indicates the circuit is closed and calls are allowed.
	StateClosed CircuitState = "closed"
	// StateOpen indicates the circuit is open and calls are rejected.
	StateOpen CircuitState = "open"
	// StateHalfOpen indicates the circuit is probing for recovery.
	StateHalfOpen CircuitState = "half-open"
)

// CircuitBreakerConfig defines thresholds for circuit breaking.
type CircuitBreakerConfig struct {
	// MaxFailures is the consecutive failure count that opens the circuit.
	MaxFailures int
	// Timeout is how long the circuit stays open before half-open probing.
	Timeout time.Duration
	// MaxHalfOpenRequests is the number of probe calls allowed in half-open
	// state; that many consecutive successes close the circuit again.
	MaxHalfOpenRequests int
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:         5,
		Timeout:             30 * time.Second,
		MaxHalfOpenRequests: 3,
	}
}

// CircuitBreaker guards a downstream call with closed/open/half-open state.
type CircuitBreaker struct {
	mu                   sync.Mutex
	state                CircuitState
	config               CircuitBreakerConfig
	consecutiveFailures  int
	consecutiveSuccesses int
	halfOpenInFlight     int
	openUntil            time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given configuration,
// normalizing non-positive fields to their defaults.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	defaults := DefaultCircuitBreakerConfig()
	if config.MaxFailures <= 0 {
		config.MaxFailures = defaults.MaxFailures
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxHalfOpenRequests <= 0 {
		config.MaxHalfOpenRequests = defaults.MaxHalfOpenRequests
	}
	return &CircuitBreaker{
		state:  StateClosed,
		config: config,
	}
}

// State returns the current state, advancing open to half-open when the
// timeout has elapsed.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advance(time.Now())
	return cb.state
}

// Allow reports whether a call may proceed right now, returning
// ErrCircuitOpen when it may not. Callers that proceed must report the
// outcome through RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.advance(time.Now())
	switch cb.state {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenInFlight >= cb.config.MaxHalfOpenRequests {
			return ErrCircuitOpen
		}
		cb.halfOpenInFlight++
		return nil
	default:
		return nil
	}
}

// RecordSuccess registers a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
	if cb.state == StateHalfOpen {
		cb.halfOpenInFlight--
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.config.MaxHalfOpenRequests {
			cb.transition(StateClosed)
		}
		return
	}
	cb.consecutiveSuccesses++
}

// RecordFailure registers a failed call, opening the circuit when the
// failure threshold is crossed or a half-open probe fails.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveSuccesses = 0
	if cb.state == StateHalfOpen {
		cb.halfOpenInFlight--
		cb.open(time.Now())
		return
	}
	cb.consecutiveFailures++
	if cb.consecutiveFailures >= cb.config.MaxFailures {
		cb.open(time.Now())
	}
}

func (cb *CircuitBreaker) advance(now time.Time) {
	if cb.state == StateOpen && now.After(cb.openUntil) {
		cb.transition(StateHalfOpen)
	}
}

func (cb *CircuitBreaker) open(now time.Time) {
	cb.openUntil = now.Add(cb.config.Timeout)
	cb.transition(StateOpen)
}

func (cb *CircuitBreaker) transition(state CircuitState) {
	cb.state = state
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	cb.halfOpenInFlight = 0
}
