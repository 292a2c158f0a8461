// Package ratelimit implements a per-platform token-bucket rate limiter.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultLimits are the requests-per-minute ceilings per platform (§4.6).
var DefaultLimits = map[string]int{
	"kalshi":     10,
	"predictit":  20,
	"polymarket": 30,
	"metaculus":  60,
	"manifold":   100,
}

const unknownPlatformLimit = 60

type bucket struct {
	tokens     float64
	lastUpdate time.Time
	limit      int
}

// Limiter is a token bucket keyed by platform. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]int
	buckets map[string]*bucket
	now     func() time.Time
}

// New creates a Limiter. A nil limits map falls back to DefaultLimits.
func New(limits map[string]int) *Limiter {
	if limits == nil {
		limits = DefaultLimits
	}
	return &Limiter{
		limits:  limits,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *Limiter) limitFor(platform string) int {
	if v, ok := l.limits[platform]; ok {
		return v
	}
	return unknownPlatformLimit
}

// Acquire blocks until a token is available for platform, then consumes one.
// State updates are serialized by a single mutex; the sleep itself happens
// outside the exclusive region so concurrent callers for other platforms
// are never blocked behind one platform's wait.
func (l *Limiter) Acquire(platform string) {
	wait := l.reserve(platform)
	if wait > 0 {
		time.Sleep(wait)
	}
}

// reserve updates bucket state under lock and returns how long the caller
// must sleep before the reserved token is actually available.
func (l *Limiter) reserve(platform string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit := l.limitFor(platform)
	ratePerSecond := float64(limit) / 60.0
	now := l.now()

	b, ok := l.buckets[platform]
	if !ok {
		b = &bucket{tokens: float64(limit), lastUpdate: now, limit: limit}
		l.buckets[platform] = b
	}

	elapsed := now.Sub(b.lastUpdate).Seconds()
	b.tokens += elapsed * ratePerSecond
	if b.tokens > float64(b.limit) {
		b.tokens = float64(b.limit)
	}
	b.lastUpdate = now

	var wait time.Duration
	if b.tokens < 1.0 {
		waitSeconds := (1.0 - b.tokens) / ratePerSecond
		wait = time.Duration(waitSeconds * float64(time.Second))
		b.tokens = 1.0
	}
	b.tokens -= 1.0

	return wait
}

// Limit returns the configured requests-per-minute ceiling for a platform.
func (l *Limiter) Limit(platform string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limitFor(platform)
}

// SetLimit overrides the requests-per-minute ceiling for a platform.
func (l *Limiter) SetLimit(platform string, limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limits[platform] = limit
}
