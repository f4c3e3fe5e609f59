// Package ratelimit implements request rate limiting for the API.
//
// The in-memory limiter uses a sliding window of timestamps per
// client under a single lock; check-and-record is one critical
// section. A distributed variant backs the window with the cache's
// atomic counters for multi-node deployments.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/globaltrusthub/trusthub/internal/domain"
)

// Info describes the limiter state returned with each decision.
type Info struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// Limiter decides whether a client request may proceed.
type Limiter interface {
	Allow(ctx context.Context, clientID string) (bool, Info, error)
}

// SlidingWindow is an in-memory sliding window rate limiter.
type SlidingWindow struct {
	mu       sync.Mutex
	requests map[string][]time.Time

	limit  int
	period time.Duration
	now    func() time.Time
}

// NewSlidingWindow creates a limiter allowing limit requests per
// period per client.
func NewSlidingWindow(limit int, period time.Duration) *SlidingWindow {
	return &SlidingWindow{
		requests: make(map[string][]time.Time),
		limit:    limit,
		period:   period,
		now:      time.Now,
	}
}

// WithClock overrides the limiter's time source. Used in tests.
func (l *SlidingWindow) WithClock(now func() time.Time) *SlidingWindow {
	l.now = now
	return l
}

// Allow checks the client's window and records the request when
// admitted. The check and the record happen under one lock so
// concurrent callers cannot slip past the limit together.
func (l *SlidingWindow) Allow(_ context.Context, clientID string) (bool, Info, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.period)

	// Drop timestamps outside the window
	window := l.requests[clientID]
	kept := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.requests[clientID] = kept

	count := len(kept)
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now.Add(l.period)
	if count > 0 {
		resetAt = kept[0].Add(l.period)
	}

	info := Info{Limit: l.limit, Remaining: remaining, ResetAt: resetAt}

	if count >= l.limit {
		return false, info, nil
	}

	l.requests[clientID] = append(kept, now)
	info.Remaining = remaining - 1

	return true, info, nil
}

// CounterLimiter is a distributed rate limiter backed by the cache's
// atomic counters. Counters expire with the period, giving a fixed
// window rather than a sliding one, which is the usual trade for a
// shared counter.
type CounterLimiter struct {
	cache  domain.Cache
	tenant string
	limit  int
	period time.Duration
	now    func() time.Time
}

// NewCounterLimiter creates a cache-backed limiter. tenantID scopes
// the counter keys.
func NewCounterLimiter(cache domain.Cache, tenantID string, limit int, period time.Duration) *CounterLimiter {
	return &CounterLimiter{
		cache:  cache,
		tenant: tenantID,
		limit:  limit,
		period: period,
		now:    time.Now,
	}
}

// Allow increments the client's counter and admits while the count
// stays at or below the limit.
func (l *CounterLimiter) Allow(ctx context.Context, clientID string) (bool, Info, error) {
	count, err := l.cache.IncrementCounter(ctx, l.tenant, "ratelimit:"+clientID, l.period)
	if err != nil {
		// Counter errors fail open
		return true, Info{Limit: l.limit, Remaining: l.limit, ResetAt: l.now().Add(l.period)}, err
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	info := Info{Limit: l.limit, Remaining: remaining, ResetAt: l.now().Add(l.period)}

	return count <= int64(l.limit), info, nil
}
