package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tytsxai/longbridge-terminal/internal/domain"
)

func TestLimiter_TryAcquire(t *testing.T) {
	// Burst of 2, 10/second refill
	l := NewLimiter(10, 2)

	if !l.TryAcquire() {
		t.Error("expected first TryAcquire to succeed")
	}
	if !l.TryAcquire() {
		t.Error("expected second TryAcquire to succeed")
	}

	// Third should fail (no tokens left)
	if l.TryAcquire() {
		t.Error("expected third TryAcquire to fail")
	}

	// Tokens never go negative
	if tokens := l.Tokens(); tokens < 0 {
		t.Errorf("tokens went negative: %f", tokens)
	}
}

func TestLimiter_Refill(t *testing.T) {
	l := NewLimiter(10, 1)

	if !l.TryAcquire() {
		t.Error("expected first TryAcquire to succeed")
	}
	if l.TryAcquire() {
		t.Error("expected immediate TryAcquire to fail")
	}

	// Wait for refill (100ms = 1 token at 10/s)
	time.Sleep(120 * time.Millisecond)

	if !l.TryAcquire() {
		t.Error("expected TryAcquire to succeed after refill")
	}
}

func TestLimiter_RefillCapped(t *testing.T) {
	l := NewLimiter(100, 3)

	time.Sleep(100 * time.Millisecond) // would add ~10 tokens uncapped

	if tokens := l.Tokens(); tokens > 3 {
		t.Errorf("tokens exceeded burst capacity: %f", tokens)
	}
}

func TestLimiter_AcquireBlocks(t *testing.T) {
	// 1 token, 100/second refill (fast for testing)
	l := NewLimiter(100, 1)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	// Second Acquire should block ~10ms (1/100 second)
	start := time.Now()
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 5*time.Millisecond {
		t.Errorf("expected Acquire to block, but elapsed=%v", elapsed)
	}
}

func TestLimiter_AcquireCanceled(t *testing.T) {
	l := NewLimiter(1, 1)
	l.TryAcquire() // exhaust

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestLimiter_BurstThenDrain(t *testing.T) {
	// The configured defaults: 10/s refill, burst 20. 30 concurrent
	// callers: 20 served from the burst, the rest over the next second.
	l := NewLimiter(10, 20)

	var immediate atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acquireStart := time.Now()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			if time.Since(acquireStart) < 50*time.Millisecond {
				immediate.Add(1)
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)

	if got := immediate.Load(); got < 18 || got > 22 {
		t.Errorf("expected ~20 immediate acquisitions, got %d", got)
	}
	// 10 remaining tokens at 10/s: about one second, none dropped.
	if total < 800*time.Millisecond || total > 2500*time.Millisecond {
		t.Errorf("expected drain to take ~1s, took %v", total)
	}
	if tokens := l.Tokens(); tokens < 0 {
		t.Errorf("tokens went negative: %f", tokens)
	}
}

func TestIsRateLimited(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("429 too many requests"), true},
		{fmt.Errorf("upstream rate limit exceeded"), true},
		{fmt.Errorf("Too Many Requests"), true},
		{fmt.Errorf("connection refused"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := IsRateLimited(c.err); got != c.want {
			t.Errorf("IsRateLimited(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestExecute_RetriesRateLimit(t *testing.T) {
	l := NewLimiter(1000, 10)
	l.backoffBase = time.Millisecond // keep the test fast

	t.Run("succeeds after one retry", func(t *testing.T) {
		attempts := 0
		err := l.Execute(context.Background(), "test", func(context.Context) error {
			attempts++
			if attempts < 2 {
				return fmt.Errorf("429 rate limit")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", attempts)
		}
	})

	t.Run("exhausts retries and annotates", func(t *testing.T) {
		attempts := 0
		err := l.Execute(context.Background(), "test", func(context.Context) error {
			attempts++
			return fmt.Errorf("429 rate limit")
		})
		if !errors.Is(err, domain.ErrRateLimitExhausted) {
			t.Errorf("expected ErrRateLimitExhausted, got %v", err)
		}
		// Initial call plus 3 retries
		if attempts != 4 {
			t.Errorf("expected 4 attempts, got %d", attempts)
		}
	})

	t.Run("non-rate-limit errors return immediately", func(t *testing.T) {
		attempts := 0
		wantErr := fmt.Errorf("connection refused")
		err := l.Execute(context.Background(), "test", func(context.Context) error {
			attempts++
			return wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Errorf("expected passthrough error, got %v", err)
		}
		if attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", attempts)
		}
	})
}
