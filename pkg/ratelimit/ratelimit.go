// Package ratelimit throttles outgoing exchange requests. Each exchange gets a
// Manager holding one limiter per endpoint class, keyed "<exchange>:private"
// and "<exchange>:public".
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is implemented by every limiter in this package.
type RateLimiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	GetRemaining() int
	GetResetTime() time.Time
}

// TokenBucket refills refillRate tokens per second up to capacity.
type TokenBucket struct {
	capacity   int
	tokens     float64
	refillRate int
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill)
	if elapsed <= 0 {
		return
	}
	tb.tokens += elapsed.Seconds() * float64(tb.refillRate)
	if tb.tokens > float64(tb.capacity) {
		tb.tokens = float64(tb.capacity)
	}
	tb.lastRefill = now
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}

		tb.mu.Lock()
		wait := time.Second
		if tb.refillRate > 0 {
			wait = time.Duration((1 - tb.tokens) / float64(tb.refillRate) * float64(time.Second))
			if wait < time.Millisecond {
				wait = time.Millisecond
			}
		}
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (tb *TokenBucket) GetRemaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return int(tb.tokens)
}

func (tb *TokenBucket) GetResetTime() time.Time {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	if tb.refillRate <= 0 || tb.tokens >= float64(tb.capacity) {
		return tb.now()
	}
	needed := float64(tb.capacity) - tb.tokens
	return tb.now().Add(time.Duration(needed / float64(tb.refillRate) * float64(time.Second)))
}

// SlidingWindow admits at most limit requests in any windowSize interval.
type SlidingWindow struct {
	limit      int
	windowSize time.Duration
	requests   []time.Time
	now        func() time.Time
	mu         sync.Mutex
}

func NewSlidingWindow(limit int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:      limit,
		windowSize: windowSize,
		now:        time.Now,
	}
}

// prune drops requests that fell out of the window. Caller holds mu.
func (sw *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-sw.windowSize)
	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}
	sw.requests = sw.requests[i:]
}

func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.prune(now)
	if len(sw.requests) >= sw.limit {
		return false
	}
	sw.requests = append(sw.requests, now)
	return true
}

func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		if sw.Allow() {
			return nil
		}

		sw.mu.Lock()
		wait := 100 * time.Millisecond
		if len(sw.requests) > 0 {
			if w := sw.windowSize - sw.now().Sub(sw.requests[0]); w > 0 {
				wait = w
			}
		}
		sw.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (sw *SlidingWindow) GetRemaining() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.prune(sw.now())
	if r := sw.limit - len(sw.requests); r > 0 {
		return r
	}
	return 0
}

func (sw *SlidingWindow) GetResetTime() time.Time {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if len(sw.requests) == 0 {
		return sw.now()
	}
	return sw.requests[0].Add(sw.windowSize)
}

// Manager routes endpoint keys such as "cryptsy:private" to their limiter.
// Keys without a dedicated limiter share the fallback.
type Manager struct {
	limiters map[string]RateLimiter
	fallback RateLimiter
	mu       sync.RWMutex
}

// NewManager creates a manager whose fallback admits perSecond requests per
// second (token bucket with a one-second burst).
func NewManager(perSecond int) *Manager {
	if perSecond <= 0 {
		perSecond = 10
	}
	return &Manager{
		limiters: make(map[string]RateLimiter),
		fallback: NewTokenBucket(perSecond, perSecond),
	}
}

// ForExchange builds the limiters for one exchange. Signed calls get a strict
// sliding window of perSecond per second; public calls a token bucket that
// refills at perSecond and bursts to twice that.
func ForExchange(privateKey, publicKey string, perSecond int) *Manager {
	m := NewManager(perSecond)
	if perSecond <= 0 {
		perSecond = 10
	}
	m.Set(privateKey, NewSlidingWindow(perSecond, time.Second))
	m.Set(publicKey, NewTokenBucket(2*perSecond, perSecond))
	return m
}

func (m *Manager) Set(key string, limiter RateLimiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[key] = limiter
}

func (m *Manager) GetLimiter(key string) RateLimiter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.limiters[key]; ok {
		return l
	}
	return m.fallback
}

func (m *Manager) Wait(ctx context.Context, key string) error {
	return m.GetLimiter(key).Wait(ctx)
}
