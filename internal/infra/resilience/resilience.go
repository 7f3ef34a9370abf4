// Package resilience provides fault-tolerance patterns:
// retry with exponential backoff, circuit breaker, and bulkhead.
package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
)

// Config holds resilience parameters shared by the transaction runner and
// the outbound clients.
type Config struct {
	// MaxRetries counts retries after the first attempt.
	MaxRetries     int
	InitialBackoff time.Duration
	// MaxConcurrency bounds concurrent write transactions.
	MaxConcurrency int
}

// RetryIf executes fn, retrying only while retryable(err) holds. It returns
// the number of attempts made together with the last error.
func RetryIf(ctx context.Context, cfg Config, retryable func(error) bool, fn func() error) (int, error) {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}

		attempts++
		lastErr = fn()
		if lastErr == nil {
			return attempts, nil
		}
		if !retryable(lastErr) {
			return attempts, lastErr
		}

		if attempt < cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return attempts, ctx.Err()
			case <-time.After(backoff(cfg.InitialBackoff, attempt)):
			}
		}
	}
	return attempts, lastErr
}

func backoff(initial time.Duration, attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(attempt))) * initial
	if base/2 <= 0 {
		return base
	}
	return base + time.Duration(rand.Int63n(int64(base/2)))
}

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}
