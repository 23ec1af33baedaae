package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var ErrCircuitOpen = errors.New("cache circuit breaker open")

type BreakerConfig struct {
	Timeout          time.Duration // hard timeout per call
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open
}

type breakerState string

const (
	stateClosed   breakerState = "closed"
	stateOpen     breakerState = "open"
	stateHalfOpen breakerState = "half_open"
)

// Breaker guards a remote Store so an unreachable backend costs one fast
// ErrCircuitOpen instead of a dial timeout on every request. Entries written
// before an outage may outlive a skipped version bump until their TTL runs out.
type Breaker struct {
	inner Store
	cfg   BreakerConfig
	clock clockwork.Clock

	mu                  sync.Mutex
	state               breakerState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewBreaker(inner Store, cfg BreakerConfig, clock clockwork.Clock) *Breaker {
	// defaults
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Millisecond
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Breaker{
		inner: inner,
		cfg:   cfg,
		clock: clock,
		state: stateClosed,
	}
}

func (b *Breaker) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		val []byte
		ok  bool
	)

	err := b.call(ctx, func(ctx context.Context) error {
		var err error
		val, ok, err = b.inner.Get(ctx, key)
		return err
	})

	return val, ok, err
}

func (b *Breaker) Set(ctx context.Context, key string, val []byte) error {
	return b.call(ctx, func(ctx context.Context) error {
		return b.inner.Set(ctx, key, val)
	})
}

func (b *Breaker) Delete(ctx context.Context, key string) error {
	return b.call(ctx, func(ctx context.Context) error {
		return b.inner.Delete(ctx, key)
	})
}

func (b *Breaker) Incr(ctx context.Context, key string) (int64, error) {
	var n int64

	err := b.call(ctx, func(ctx context.Context) error {
		var err error
		n, err = b.inner.Incr(ctx, key)
		return err
	})

	return n, err
}

// State reports closed, open or half_open.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.state)
}

func (b *Breaker) call(ctx context.Context, fn func(ctx context.Context) error) error {
	// fail-fast gate
	if !b.allowRequest() {
		return ErrCircuitOpen
	}

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	err := fn(callCtx)

	b.afterRequest(err)

	return err
}

func (b *Breaker) allowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		if b.clock.Since(b.openedAt) >= b.cfg.Cooldown {
			b.state = stateHalfOpen
			b.halfOpenInFlight = 1
			return true
		}
		return false
	case stateHalfOpen:
		if b.halfOpenInFlight >= b.cfg.HalfOpenMaxCalls {
			return false
		}
		b.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (b *Breaker) afterRequest(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// half-open call just finished
	if b.state == stateHalfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}

	if err == nil {
		b.consecutiveFailures = 0
		b.state = stateClosed
		return
	}

	b.consecutiveFailures++

	// a failed trial reopens immediately
	if b.state == stateHalfOpen {
		b.state = stateOpen
		b.openedAt = b.clock.Now()
		return
	}

	if b.consecutiveFailures >= b.cfg.FailureThreshold {
		b.state = stateOpen
		b.openedAt = b.clock.Now()
	}
}
