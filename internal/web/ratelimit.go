package web

import (
	"context"
	"sync"
	"time"
)

const (
	// MaxUploadsPerMinute limits image uploads per session.
	MaxUploadsPerMinute = 10

	// MaxAIRequestsPerMinute limits generative requests per session.
	MaxAIRequestsPerMinute = 5

	// limiterCleanupInterval is how often to check for stale buckets.
	limiterCleanupInterval = 5 * time.Minute

	// maxBucketAge is the maximum idle time before a bucket is dropped.
	maxBucketAge = 30 * time.Minute
)

// tokenBucket implements a simple token bucket rate limiter.
type tokenBucket struct {
	capacity   int
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
	mu         sync.Mutex
}

// newTokenBucket creates a new token bucket with the specified capacity.
// Tokens refill at a rate of capacity per minute.
func newTokenBucket(capacity int) *tokenBucket {
	now := time.Now()
	return &tokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		lastRefill: now,
		lastAccess: now,
	}
}

// allow checks if a request can proceed and consumes a token if so.
func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	tokensToAdd := int(elapsed.Minutes() * float64(tb.capacity))
	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}

	tb.lastAccess = now

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

// rateLimiter tracks per-session limits for the expensive operations:
// uploads (decode + store) and generative requests.
type rateLimiter struct {
	mu     sync.RWMutex
	upload map[string]*tokenBucket
	ai     map[string]*tokenBucket
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		upload: make(map[string]*tokenBucket),
		ai:     make(map[string]*tokenBucket),
	}
}

// allowUpload checks whether an upload from the session may proceed.
func (rl *rateLimiter) allowUpload(sessionID string) bool {
	return rl.allow(rl.upload, sessionID, MaxUploadsPerMinute)
}

// allowAI checks whether a generative request from the session may proceed.
func (rl *rateLimiter) allowAI(sessionID string) bool {
	return rl.allow(rl.ai, sessionID, MaxAIRequestsPerMinute)
}

func (rl *rateLimiter) allow(buckets map[string]*tokenBucket, sessionID string, capacity int) bool {
	rl.mu.RLock()
	tb, ok := buckets[sessionID]
	rl.mu.RUnlock()

	if !ok {
		rl.mu.Lock()
		// Double-check after acquiring the write lock.
		if tb, ok = buckets[sessionID]; !ok {
			tb = newTokenBucket(capacity)
			buckets[sessionID] = tb
		}
		rl.mu.Unlock()
	}

	return tb.allow()
}

// startCleanup launches a goroutine that drops idle buckets until the
// context is cancelled.
func (rl *rateLimiter) startCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()
}

func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for _, buckets := range []map[string]*tokenBucket{rl.upload, rl.ai} {
		for id, tb := range buckets {
			tb.mu.Lock()
			idle := now.Sub(tb.lastAccess)
			tb.mu.Unlock()
			if idle > maxBucketAge {
				delete(buckets, id)
			}
		}
	}
}
