// Package ratelimiter provides the token bucket the provider clients use to
// stay under per-minute request and token quotas.
package ratelimiter

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	DefaultBucketSize = 10
	DefaultRefillRate = time.Second

	// MinRefillInterval is the shortest tick NewPerMinute uses. Faster quotas
	// are refilled in batches instead of one token per tick.
	MinRefillInterval = 100 * time.Millisecond
)

// ErrRateLimiterStopped is returned by Wait after Stop.
var ErrRateLimiterStopped = errors.New("rate limiter stopped")

// TokenBucket holds at most bucketSize tokens and adds refillAmount tokens
// every refillRate. Tokens are a counter, so memory does not grow with the
// bucket size.
type TokenBucket struct {
	bucketSize   int
	refillRate   time.Duration
	refillAmount int

	mu       sync.Mutex
	tokens   int
	refilled chan struct{}
	stopped  bool

	ticker *time.Ticker
	stopCh chan struct{}
	done   chan struct{}
}

// NewTokenBucket returns a full bucket that adds one token every refillRate.
func NewTokenBucket(bucketSize int, refillRate time.Duration) *TokenBucket {
	return newBucket(bucketSize, 1, refillRate)
}

// NewPerMinute returns a bucket that allows perMinute tokens per minute with
// a burst of the same size. Above 600 per minute the refill runs every
// MinRefillInterval and adds the tokens due for that interval at once.
func NewPerMinute(perMinute int) *TokenBucket {
	if perMinute <= 0 {
		return NewTokenBucket(0, 0)
	}
	interval := time.Minute / time.Duration(perMinute)
	if interval >= MinRefillInterval {
		return NewTokenBucket(perMinute, interval)
	}
	amount := int(int64(perMinute) * int64(MinRefillInterval) / int64(time.Minute))
	return newBucket(perMinute, amount, MinRefillInterval)
}

func newBucket(bucketSize, refillAmount int, refillRate time.Duration) *TokenBucket {
	if bucketSize <= 0 {
		bucketSize = DefaultBucketSize
	}
	if refillRate <= 0 {
		refillRate = DefaultRefillRate
	}
	if refillAmount <= 0 {
		refillAmount = 1
	}

	tb := &TokenBucket{
		bucketSize:   bucketSize,
		refillRate:   refillRate,
		refillAmount: refillAmount,
		tokens:       bucketSize,
		refilled:     make(chan struct{}),
		ticker:       time.NewTicker(refillRate),
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
	}

	go tb.refillTokens()

	return tb
}

func (tb *TokenBucket) refillTokens() {
	defer close(tb.done)
	for {
		select {
		case <-tb.ticker.C:
			tb.refill()
		case <-tb.stopCh:
			return
		}
	}
}

func (tb *TokenBucket) refill() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.tokens == tb.bucketSize {
		return
	}
	tb.tokens = min(tb.tokens+tb.refillAmount, tb.bucketSize)
	// wake every waiter; they retry under the lock
	close(tb.refilled)
	tb.refilled = make(chan struct{})
}

// take removes n tokens if they are all available. Otherwise it returns the
// channel closed by the next refill.
func (tb *TokenBucket) take(n int) (bool, <-chan struct{}, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.stopped {
		return false, nil, ErrRateLimiterStopped
	}
	if tb.tokens >= n {
		tb.tokens -= n
		return true, nil, nil
	}
	return false, tb.refilled, nil
}

func (tb *TokenBucket) Allow() bool {
	ok, _, err := tb.take(1)
	return ok && err == nil
}

// Wait blocks until a token is available or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.WaitN(ctx, 1)
}

// WaitN blocks until n tokens are available and takes them together.
// Requests larger than the bucket are clamped to the bucket size so they
// can never block forever.
func (tb *TokenBucket) WaitN(ctx context.Context, n int) error {
	if n > tb.bucketSize {
		n = tb.bucketSize
	}
	if n <= 0 {
		return nil
	}
	for {
		ok, refilled, err := tb.take(n)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-refilled:
		case <-tb.stopCh:
			return ErrRateLimiterStopped
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop releases the refill goroutine and every waiter. It is safe to call
// more than once.
func (tb *TokenBucket) Stop() {
	tb.mu.Lock()
	if tb.stopped {
		tb.mu.Unlock()
		return
	}
	tb.stopped = true
	tb.ticker.Stop()
	close(tb.stopCh)
	tb.mu.Unlock()

	<-tb.done
}

func (tb *TokenBucket) AvailableTokens() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.tokens
}

func (tb *TokenBucket) BucketSize() int {
	return tb.bucketSize
}

func (tb *TokenBucket) RefillRate() time.Duration {
	return tb.refillRate
}

// RefillAmount is the number of tokens added every RefillRate.
func (tb *TokenBucket) RefillAmount() int {
	return tb.refillAmount
}
