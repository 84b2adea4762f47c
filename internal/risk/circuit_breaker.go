// Package risk stops order placement on an exchange that keeps failing.
package risk

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrCircuitBreakerOpen is returned by AllowTrading once the breaker trips.
var ErrCircuitBreakerOpen = errors.New("circuit breaker open")

// CircuitBreakerConfig: a threshold <= 0 disables that limit.
type CircuitBreakerConfig struct {
	MaxConsecutiveErrors int64
}

// CircuitBreaker is safe for concurrent use; every field is atomic.
type CircuitBreaker struct {
	halted atomic.Bool

	consecutiveErrors    atomic.Int64
	maxConsecutiveErrors atomic.Int64
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cb := &CircuitBreaker{}
	cb.SetConfig(cfg)
	return cb
}

func (cb *CircuitBreaker) SetConfig(cfg CircuitBreakerConfig) {
	if cb == nil {
		return
	}
	cb.maxConsecutiveErrors.Store(cfg.MaxConsecutiveErrors)
}

// Halt opens the breaker by hand.
func (cb *CircuitBreaker) Halt() {
	if cb == nil {
		return
	}
	cb.halted.Store(true)
}

// Resume closes the breaker and clears the error count.
func (cb *CircuitBreaker) Resume() {
	if cb == nil {
		return
	}
	cb.halted.Store(false)
	cb.consecutiveErrors.Store(0)
}

// AllowTrading is checked before every order placement. A nil breaker
// always allows.
func (cb *CircuitBreaker) AllowTrading() error {
	if cb == nil {
		return nil
	}
	if cb.halted.Load() {
		return ErrCircuitBreakerOpen
	}
	maxErr := cb.maxConsecutiveErrors.Load()
	if maxErr > 0 && cb.consecutiveErrors.Load() >= maxErr {
		cb.halted.Store(true)
		return ErrCircuitBreakerOpen
	}
	return nil
}

func (cb *CircuitBreaker) OnSuccess() {
	if cb == nil {
		return
	}
	cb.consecutiveErrors.Store(0)
}

func (cb *CircuitBreaker) OnError() {
	if cb == nil {
		return
	}
	cb.consecutiveErrors.Add(1)
}

// State is a point-in-time view for status endpoints.
type State struct {
	Halted            bool  `json:"halted"`
	ConsecutiveErrors int64 `json:"consecutive_errors"`
	MaxErrors         int64 `json:"max_consecutive_errors"`
}

func (cb *CircuitBreaker) State() State {
	if cb == nil {
		return State{}
	}
	return State{
		Halted:            cb.halted.Load(),
		ConsecutiveErrors: cb.consecutiveErrors.Load(),
		MaxErrors:         cb.maxConsecutiveErrors.Load(),
	}
}
