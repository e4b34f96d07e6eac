// Package resilience provides a circuit breaker for collaborator calls. It
// never retries: a failing call fails, and once the breaker is open calls fail
// fast until a probe succeeds.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State of a circuit breaker.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls are rejected
	StateHalfOpen              // a limited number of probes pass through
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

// ErrCircuitOpen is returned instead of calling through an open breaker.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerOpts configures a Breaker.
type BreakerOpts struct {
	// Name identifies the guarded collaborator in state-change callbacks.
	Name string
	// FailThreshold is how many consecutive failures open the breaker.
	FailThreshold int
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// HalfOpenMax is the number of concurrent probes allowed while half-open.
	HalfOpenMax int
	// OnStateChange, if set, is called after every transition, outside the lock.
	OnStateChange func(name string, from, to State)
}

// DefaultBreakerOpts are used for zero fields.
var DefaultBreakerOpts = BreakerOpts{
	FailThreshold: 5,
	Cooldown:      30 * time.Second,
	HalfOpenMax:   1,
}

// Breaker is a closed/open/half-open circuit breaker.
type Breaker struct {
	mu       sync.Mutex
	opts     BreakerOpts
	state    State
	failures int
	openedAt time.Time
	probes   int
	now      func() time.Time
}

// NewBreaker creates a Breaker, filling zero options from DefaultBreakerOpts.
func NewBreaker(opts BreakerOpts) *Breaker {
	if opts.FailThreshold <= 0 {
		opts.FailThreshold = DefaultBreakerOpts.FailThreshold
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultBreakerOpts.Cooldown
	}
	if opts.HalfOpenMax <= 0 {
		opts.HalfOpenMax = DefaultBreakerOpts.HalfOpenMax
	}
	return &Breaker{opts: opts, now: time.Now}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, _ := b.advance()
	return st
}

// advance moves open to half-open once the cooldown elapsed. Must hold mu.
func (b *Breaker) advance() (State, bool) {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.opts.Cooldown {
		b.state = StateHalfOpen
		b.probes = 0
		return b.state, true
	}
	return b.state, false
}

// Call runs f unless the breaker is open. Errors from f count as failures,
// except context cancellation by the caller.
func (b *Breaker) Call(ctx context.Context, f func(context.Context) error) error {
	b.mu.Lock()
	st, moved := b.advance()
	switch st {
	case StateOpen:
		b.mu.Unlock()
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.probes >= b.opts.HalfOpenMax {
			b.mu.Unlock()
			if moved {
				b.notify(StateOpen, StateHalfOpen)
			}
			return ErrCircuitOpen
		}
		b.probes++
	}
	b.mu.Unlock()
	if moved {
		b.notify(StateOpen, StateHalfOpen)
	}

	err := f(ctx)

	b.mu.Lock()
	from := b.state
	switch {
	case err != nil && ctx.Err() == nil:
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.opts.FailThreshold {
			b.state = StateOpen
			b.openedAt = b.now()
			b.failures = 0
			b.probes = 0
		}
	case err == nil:
		b.state = StateClosed
		b.failures = 0
	case b.state == StateHalfOpen && b.probes > 0:
		// cancelled probe frees its slot
		b.probes--
	}
	to := b.state
	b.mu.Unlock()

	if from != to {
		b.notify(from, to)
	}
	return err
}

func (b *Breaker) notify(from, to State) {
	if b.opts.OnStateChange != nil {
		b.opts.OnStateChange(b.opts.Name, from, to)
	}
}
