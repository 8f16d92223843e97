package generator

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrLaunchSuspended is wrapped together with [ErrUnavailable] while the
// launch breaker is open.
var ErrLaunchSuspended = errors.New("generator: launches suspended after repeated failures")

// Launch breaker defaults.
const (
	DefaultBreakerFailures = 5
	DefaultBreakerCooldown = 30 * time.Second
)

// BreakerState is the mode of the launch breaker.
type BreakerState int

const (
	// BreakerClosed forwards every launch.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects launches until the cooldown has passed.
	BreakerOpen
	// BreakerHalfOpen lets a single probe launch through.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker guards process launches shared by all sessions. After
// maxFailures consecutive failed launches it opens; once cooldown has passed
// one probe is allowed, and its outcome closes or re-opens the breaker.
type breaker struct {
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

func newBreaker(maxFailures int, cooldown time.Duration) *breaker {
	if maxFailures <= 0 {
		maxFailures = DefaultBreakerFailures
	}
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}
	return &breaker{maxFailures: maxFailures, cooldown: cooldown, now: time.Now}
}

// allow reports whether a launch may proceed. A nil return must be followed
// by exactly one record call.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrLaunchSuspended
		}
		b.state = BreakerHalfOpen
		slog.Info("generator: launch breaker half-open, probing")
		fallthrough
	case BreakerHalfOpen:
		if b.probing {
			return ErrLaunchSuspended
		}
		b.probing = true
	}
	return nil
}

func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.probing = false
		if err != nil {
			b.state = BreakerOpen
			b.openedAt = b.now()
			slog.Warn("generator: launch probe failed, breaker re-opened", "err", err)
			return
		}
		b.state = BreakerClosed
		b.failures = 0
		slog.Info("generator: launch breaker closed")
		return
	}

	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.state == BreakerClosed && b.failures >= b.maxFailures {
		b.state = BreakerOpen
		b.openedAt = b.now()
		slog.Warn("generator: launch breaker opened",
			"consecutive_failures", b.failures, "cooldown", b.cooldown)
	}
}

func (b *breaker) current() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return BreakerHalfOpen
	}
	return b.state
}
