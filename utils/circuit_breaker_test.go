package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := CreateCircuitBreaker(3, time.Minute)
	ctx := context.Background()
	boom := errors.New("provider down")

	for i := 0; i < 3; i++ {
		if err := cb.Execute(ctx, func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: expected operation error, got %v", i, err)
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("expected open state after 3 failures, got %v", cb.State())
	}

	err := cb.Execute(ctx, func() error {
		t.Fatal("operation must not run while circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := CreateCircuitBreaker(1, 10*time.Millisecond)
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errors.New("fail") })
	if cb.State() != StateOpen {
		t.Fatalf("expected open state, got %v", cb.State())
	}

	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(ctx, func() error { return nil }); err != nil {
		t.Fatalf("probe call should run after reset timeout, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected closed state after successful probe, got %v", cb.State())
	}
}

func TestCircuitBreakerReopensOnFailedProbe(t *testing.T) {
	cb := CreateCircuitBreaker(1, 10*time.Millisecond)
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errors.New("fail") })
	time.Sleep(20 * time.Millisecond)

	_ = cb.Execute(ctx, func() error { return errors.New("still failing") })
	if cb.State() != StateOpen {
		t.Errorf("expected open state after failed probe, got %v", cb.State())
	}
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := CreateCircuitBreaker(2, time.Minute)
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errors.New("fail") })
	_ = cb.Execute(ctx, func() error { return nil })
	_ = cb.Execute(ctx, func() error { return errors.New("fail") })

	if cb.State() != StateClosed {
		t.Errorf("non-consecutive failures should not trip the breaker, got %v", cb.State())
	}
}
