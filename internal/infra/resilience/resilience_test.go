package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/certificacion-calidad-go/internal/infra/resilience"
)

var errSerialization = errors.New("could not serialize access due to concurrent update")

func always(error) bool { return true }

func TestRetryIf_SucceedsFirstTime(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: 10 * time.Millisecond}

	attempts, err := resilience.RetryIf(context.Background(), cfg, always, func() error {
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryIf_RetriesConflictingTransaction(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: 10 * time.Millisecond}

	calls := 0
	attempts, err := resilience.RetryIf(context.Background(), cfg, func(err error) bool {
		return errors.Is(err, errSerialization)
	}, func() error {
		calls++
		if calls < 3 {
			return errSerialization
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryIf_RespectsContext(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 5, InitialBackoff: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts, err := resilience.RetryIf(ctx, cfg, always, func() error {
		return errSerialization
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if attempts != 0 {
		t.Errorf("expected no attempts on a cancelled context, got %d", attempts)
	}
}

func TestRetryIf_StopsOnNonRetryable(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: time.Millisecond,
	}
	permanent := errors.New("business rule")

	attempts, err := resilience.RetryIf(context.Background(), cfg, func(err error) bool {
		return !errors.Is(err, permanent)
	}, func() error {
		return permanent
	})

	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryIf_CountsAttempts(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
	}

	attempts, err := resilience.RetryIf(context.Background(), cfg, always, func() error {
		return errSerialization
	})

	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryIf_ZeroBackoff(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 1}
	calls := 0

	_, err := resilience.RetryIf(context.Background(), cfg, always, func() error {
		calls++
		if calls == 1 {
			return errors.New("first")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success on retry, got %v", err)
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}

	// Third acquire blocks until the context times out
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bh.Acquire(ctx)
	if err == nil {
		t.Fatal("expected timeout on third acquire")
	}

	// Release one slot
	bh.Release()

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}
