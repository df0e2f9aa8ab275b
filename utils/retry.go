package utils

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryConfig is a reusable transient-failure policy: how many attempts,
// how delays grow between them, and which errors qualify for another
// attempt. Any error RetryIf rejects propagates immediately.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      bool
	BackoffType BackoffType
	RetryIf     func(error) bool
	OnRetry     func(attempt int, err error)
}

type BackoffType int

const (
	Linear BackoffType = iota
	Exponential
	ExponentialJitter
	Fixed
)

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
		BackoffType: ExponentialJitter,
	}
}

// Retry runs operation up to config.MaxAttempts times, sleeping between
// attempts per the backoff policy. The context cancels waits between
// attempts, not an attempt in flight.
func Retry(ctx context.Context, config *RetryConfig, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := calculateDelay(config, attempt)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if config.RetryIf != nil && !config.RetryIf(err) {
			return err
		}

		if config.OnRetry != nil && attempt+1 < config.MaxAttempts {
			config.OnRetry(attempt+1, err)
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

func calculateDelay(config *RetryConfig, attempt int) time.Duration {
	var delay time.Duration

	switch config.BackoffType {
	case Fixed:
		delay = config.BaseDelay
	case Linear:
		delay = time.Duration(attempt) * config.BaseDelay
	case Exponential, ExponentialJitter:
		delay = time.Duration(float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt-1)))
	}

	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if delay > 0 && (config.Jitter || config.BackoffType == ExponentialJitter) {
		delay = delay/2 + time.Duration(rand.Int63n(int64(delay/2)+1))
	}

	return delay
}
