package steam

import (
	"errors"
	"sync"
	"time"
)

// ErrUpstreamOpen is returned while the breaker is rejecting calls after a
// run of upstream failures.
var ErrUpstreamOpen = errors.New("steam_upstream_circuit_open")

// breaker trips after consecutive upstream failures and lets a few probe
// requests through once the cooldown has passed. A Steam outage then costs
// each sync one cheap rejection instead of a full timeout.
type breaker struct {
	mu sync.Mutex

	failureThreshold int
	resetTimeout     time.Duration
	halfOpenMax      int

	failures      int
	lastFailure   time.Time
	state         breakerState
	halfOpenCount int
}

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func newBreaker() *breaker {
	return &breaker{
		failureThreshold: 5,
		resetTimeout:     30 * time.Second,
		halfOpenMax:      2,
		state:            breakerClosed,
	}
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return true

	case breakerOpen:
		if time.Since(b.lastFailure) > b.resetTimeout {
			b.state = breakerHalfOpen
			b.halfOpenCount = 1
			return true
		}
		return false

	case breakerHalfOpen:
		if b.halfOpenCount < b.halfOpenMax {
			b.halfOpenCount++
			return true
		}
		return false
	}

	return false
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == breakerHalfOpen {
		b.state = breakerClosed
	}
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.halfOpenCount = 0
		return
	}
	if b.failures >= b.failureThreshold {
		b.state = breakerOpen
	}
}

func (b *breaker) stateString() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
