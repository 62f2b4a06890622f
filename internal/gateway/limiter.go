package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tytsxai/longbridge-terminal/internal/domain"
	"github.com/tytsxai/longbridge-terminal/internal/infra"
)

const maxRateLimitRetries = 3

// Limiter implements a token bucket rate limiter gating every outbound
// OpenAPI call. Refill is computed lazily from elapsed time on each
// acquisition attempt, so an idle limiter costs nothing.
// Thread-safe and suitable for concurrent callers.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time

	// backoffBase is the first retry delay in Execute; the schedule
	// doubles from here (1s, 2s, 4s). Shortened in tests.
	backoffBase time.Duration
}

// NewLimiter creates a new rate limiter.
// tokensPerSecond: refill rate. burst: maximum burst size.
func NewLimiter(tokensPerSecond float64, burst int) *Limiter {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &Limiter{
		tokens:      float64(burst),
		maxTokens:   float64(burst),
		refillRate:  tokensPerSecond,
		lastRefill:  time.Now(),
		backoffBase: time.Second,
	}
}

// Acquire blocks until a token is available or the context is canceled.
// Acquisition order is not FIFO, but every waiter polls at the refill
// interval so no waiter starves under steady load.
func (l *Limiter) Acquire(ctx context.Context) error {
	waitStep := time.Duration(float64(time.Second) / l.refillRate)

	for {
		if l.TryAcquire() {
			return nil
		}
		timer := time.NewTimer(waitStep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire attempts to acquire a token without blocking.
// Returns true if a token was acquired, false otherwise.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()

	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Tokens returns the currently available token count (for monitoring).
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}

// refill adds tokens based on elapsed time.
// Must be called with mutex held.
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.tokens += elapsed * l.refillRate

	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}

	l.lastRefill = now
}

// Execute runs an outbound call under the limiter. Failures classified
// as rate limiting are retried with exponential backoff (1s, 2s, 4s)
// up to maxRateLimitRetries times; the last error is then surfaced
// annotated with domain.ErrRateLimitExhausted. Other errors return
// immediately.
func (l *Limiter) Execute(ctx context.Context, name string, fn func(context.Context) error) error {
	backoff := l.backoffBase

	for attempt := 0; ; attempt++ {
		if err := l.Acquire(ctx); err != nil {
			return err
		}

		infra.GlobalMetrics.RecordAPICall()
		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				slog.Debug("Request succeeded after retries",
					slog.String("request", name), slog.Int("retries", attempt))
			}
			return nil
		}

		if !IsRateLimited(err) {
			return err
		}
		if attempt >= maxRateLimitRetries {
			return fmt.Errorf("%s: %w: %w", name, domain.ErrRateLimitExhausted, err)
		}

		infra.GlobalMetrics.RecordAPIRetry()
		slog.Warn("Rate limited, backing off",
			slog.String("request", name),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", backoff),
			slog.Any("error", err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

// IsRateLimited classifies an upstream error as a rate-limit rejection,
// either by explicit status code or by message pattern.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}
