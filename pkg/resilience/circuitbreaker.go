// Package resilience guards calls to optional backends: a circuit breaker
// that stops calling a backend after repeated failures, and an
// exponential-backoff retry for connecting at startup.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type BreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	// IsFailure decides whether an error counts against the breaker. A nil
	// IsFailure counts every non-nil error.
	IsFailure func(error) bool
	// OnStateChange runs after every state change, outside the lock.
	OnStateChange func(name string, from, to State)
}

// Breaker trips open after FailureThreshold consecutive failures, rejects
// calls for ResetTimeout, then lets HalfOpenMaxRequests probes through.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	now    func() time.Time
	logger *slog.Logger

	mu               sync.Mutex
	state            State
	failures         int
	openedAt         time.Time
	halfOpenInFlight int
}

func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &Breaker{
		name:   name,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Do runs fn unless the circuit is open, in which case it returns an error
// wrapping ErrCircuitOpen without calling fn.
func (b *Breaker) Do(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Reset() {
	b.transition(func() State {
		b.failures = 0
		b.halfOpenInFlight = 0
		return StateClosed
	})
}

func (b *Breaker) allow() error {
	var err error
	b.transition(func() State {
		switch b.state {
		case StateOpen:
			if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
				err = fmt.Errorf("%w: %s", ErrCircuitOpen, b.name)
				return StateOpen
			}
			b.halfOpenInFlight = 1
			return StateHalfOpen
		case StateHalfOpen:
			if b.halfOpenInFlight >= b.cfg.HalfOpenMaxRequests {
				err = fmt.Errorf("%w: %s: probe in flight", ErrCircuitOpen, b.name)
				return StateHalfOpen
			}
			b.halfOpenInFlight++
		}
		return b.state
	})
	return err
}

func (b *Breaker) record(err error) {
	failed := err != nil
	if failed && b.cfg.IsFailure != nil {
		failed = b.cfg.IsFailure(err)
	}
	b.transition(func() State {
		if !failed {
			b.failures = 0
			b.halfOpenInFlight = 0
			return StateClosed
		}
		b.failures++
		switch {
		case b.state == StateHalfOpen, b.failures >= b.cfg.FailureThreshold:
			b.openedAt = b.now()
			b.halfOpenInFlight = 0
			return StateOpen
		}
		return b.state
	})
}

// transition applies step under the lock and reports a state change after
// releasing it.
func (b *Breaker) transition(step func() State) {
	b.mu.Lock()
	from := b.state
	to := step()
	b.state = to
	failures := b.failures
	b.mu.Unlock()

	if from == to {
		return
	}
	level := slog.LevelInfo
	if to == StateOpen {
		level = slog.LevelWarn
	}
	b.logger.Log(context.Background(), level, "circuit state changed",
		"from", from.String(), "to", to.String(), "consecutive_failures", failures)
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}
