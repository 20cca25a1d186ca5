package ratelimit

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tuncanbit/paygate/pkg/config"
)

// Limiter is a sliding-window rate limiter keyed by caller identity. A denied
// call carries no side effect: it does not count toward the window.
type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

func New(cfg config.RateLimitConfig, logger zerolog.Logger) *Limiter {
	return &Limiter{
		requests: make(map[string][]time.Time),
		max:      cfg.MaxRequests,
		window:   cfg.Window,
		now:      time.Now,
		logger:   logger,
	}
}

func (l *Limiter) Allow(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.trim(l.requests[identity], now)

	if len(recent) >= l.max {
		l.requests[identity] = recent
		l.logger.Debug().Str("identity", identity).Msg("Rate limit exceeded")
		return false
	}

	l.requests[identity] = append(recent, now)
	return true
}

// Reset clears a single identity's window. Administrative override.
func (l *Limiter) Reset(identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.requests, identity)
}

// Sweep drops identities whose windows have fully aged out, bounding memory.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for identity, times := range l.requests {
		recent := l.trim(times, now)
		if len(recent) == 0 {
			delete(l.requests, identity)
			removed++
		} else {
			l.requests[identity] = recent
		}
	}
	return removed
}

func (l *Limiter) trim(times []time.Time, now time.Time) []time.Time {
	recent := times[:0]
	for _, ts := range times {
		if now.Sub(ts) < l.window {
			recent = append(recent, ts)
		}
	}
	return recent
}
