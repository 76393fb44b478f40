package auth

import (
	"context"
	"sync"
	"time"
)

// Defaults applied when a limiter is constructed with zero tuning
// values.
const (
	DefaultCleanupInterval = 5 * time.Minute
	DefaultIdleTTL         = time.Hour
)

// RateLimiter admits or rejects one request for a key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// TokenBucketLimiter refills one token per refill interval up to the
// burst size, independently per key. Keys idle past the TTL are swept
// by a janitor so the map does not grow without bound.
type TokenBucketLimiter struct {
	burst           int
	refillInterval  time.Duration
	cleanupInterval time.Duration
	idleTTL         time.Duration

	mu      sync.Mutex
	entries map[string]*bucketEntry

	stop     chan struct{}
	stopOnce sync.Once
}

type bucketEntry struct {
	tokens   int
	lastFill time.Time
}

// NewTokenBucketLimiter creates a limiter and starts its janitor.
// Non-positive cleanupInterval and idleTTL fall back to the defaults.
func NewTokenBucketLimiter(burst int, refillInterval, cleanupInterval, idleTTL time.Duration) *TokenBucketLimiter {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	l := &TokenBucketLimiter{
		burst:           burst,
		refillInterval:  refillInterval,
		cleanupInterval: cleanupInterval,
		idleTTL:         idleTTL,
		entries:         make(map[string]*bucketEntry),
		stop:            make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Allow consumes one token for the key, reporting whether one was
// available.
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &bucketEntry{tokens: l.burst, lastFill: now}
		l.entries[key] = e
	}

	if refilled := int(now.Sub(e.lastFill) / l.refillInterval); refilled > 0 {
		e.tokens = min(e.tokens+refilled, l.burst)
		e.lastFill = now
	}

	if e.tokens == 0 {
		return false, nil
	}
	e.tokens--
	return true, nil
}

// Reset forgets the key, restoring its full burst on the next request.
func (l *TokenBucketLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}

// Close stops the janitor.
func (l *TokenBucketLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *TokenBucketLimiter) janitor() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.sweep(now)
		}
	}
}

func (l *TokenBucketLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if now.Sub(e.lastFill) > l.idleTTL {
			delete(l.entries, key)
		}
	}
}

// IPRateLimiter keys a token bucket limiter by client IP for the local
// HTTP surface.
type IPRateLimiter struct {
	limiter RateLimiter
}

// NewIPRateLimiter allows requestsPerMinute sustained requests per IP,
// with the same value as the burst size. Cleanup tuning comes from
// configuration.
func NewIPRateLimiter(requestsPerMinute int, cleanupInterval, idleTTL time.Duration) *IPRateLimiter {
	perMinute := max(requestsPerMinute, 1)
	return &IPRateLimiter{
		limiter: NewTokenBucketLimiter(perMinute, time.Minute/time.Duration(perMinute), cleanupInterval, idleTTL),
	}
}

// Allow reports whether a request from the IP is admitted.
func (l *IPRateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	return l.limiter.Allow(ctx, "ip:"+ip)
}
