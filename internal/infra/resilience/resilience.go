// Package resilience hardens calls to the remote fiscal authorizer: retry
// with exponential backoff for transient failures, a circuit breaker that
// sheds load while the authorizer is down, and a bulkhead capping how many
// emissions may be in flight at once.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
)

// Config holds the retry, breaker and bulkhead parameters. Zero breaker
// values fall back to the defaults below.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// BreakerWindow is the closed-state interval over which failures are
	// counted; BreakerCooldown is how long the breaker stays open before
	// probing again.
	BreakerWindow       time.Duration
	BreakerCooldown     time.Duration
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
}

const (
	defaultBreakerWindow       = 30 * time.Second
	defaultBreakerCooldown     = 10 * time.Second
	defaultBreakerMinRequests  = 5
	defaultBreakerFailureRatio = 0.6
)

// permanentError wraps an error the caller has classified as not transient.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. The authorizer rejecting a
// nota is permanent; the authorizer being unreachable is not.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff executes fn with exponential backoff + jitter until it
// succeeds, returns a Permanent error, or the budget runs out. It respects
// context cancellation between attempts.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * cfg.InitialBackoff
			jitter := time.Duration(rand.Int63n(int64(backoff/2) + 1))
			wait := backoff + jitter

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}

// NewCircuitBreaker creates a breaker for the named remote using the
// config's thresholds. It allows a single probe request while half-open.
func NewCircuitBreaker(name string, cfg Config) *gobreaker.CircuitBreaker {
	window := cfg.BreakerWindow
	if window <= 0 {
		window = defaultBreakerWindow
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}
	minRequests := cfg.BreakerMinRequests
	if minRequests == 0 {
		minRequests = defaultBreakerMinRequests
	}
	ratio := cfg.BreakerFailureRatio
	if ratio <= 0 {
		ratio = defaultBreakerFailureRatio
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    window,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= ratio
		},
	})
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
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
