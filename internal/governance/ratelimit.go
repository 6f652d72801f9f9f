package governance

import (
	"sync"
	"time"
)

// TokenBucket implements token-bucket admission control: take a token per
// request, refill continuously at a fixed rate up to a burst capacity.
type TokenBucket struct {
	mu         sync.Mutex
	rate       float64 // tokens per second
	capacity   float64 // maximum burst size
	tokens     float64 // currently available tokens
	lastRefill time.Time
}

// NewTokenBucket creates a bucket that refills at rps tokens per second and
// holds at most burst tokens. Non-positive values fall back to rps=100 and
// burst=rps. The bucket starts full.
func NewTokenBucket(rps, burst int) *TokenBucket {
	if rps <= 0 {
		rps = 100
	}
	if burst <= 0 {
		burst = rps
	}
	return &TokenBucket{
		rate:       float64(rps),
		capacity:   float64(burst),
		tokens:     float64(burst),
		lastRefill: time.Now(),
	}
}

// Take consumes one token, reporting whether the request is admitted.
func (b *TokenBucket) Take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(time.Now())
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Available returns the current token count, after refill.
func (b *TokenBucket) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(time.Now())
	return b.tokens
}

func (b *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}
