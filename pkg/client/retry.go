package client

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marvel_retries_total",
		Help: "Total number of retry attempts by endpoint",
	}, []string{"endpoint"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marvel_retry_backoff_seconds",
		Help:    "Backoff duration for retries by endpoint",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"endpoint"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marvel_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by endpoint",
	}, []string{"endpoint"})
)

// SleepFunc suspends the caller for the given duration, returning early
// with the context error if the context is cancelled first. Tests inject
// a fake to make backoff deterministic.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryConfig holds the configuration for retry logic. It is an
// injectable policy: attempts, backoff shape, retryable-status predicate
// and sleep function can all be replaced for deterministic tests.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64

	// RetryableStatus holds the transient HTTP status codes eligible for retry.
	RetryableStatus map[int]bool

	// Sleep is the suspension hook; nil means a real timer honoring the context.
	Sleep SleepFunc
}

// DefaultRetryConfig returns the default retry configuration: five
// attempts against 500/502/504, doubling the backoff between attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		RetryableStatus:   map[int]bool{500: true, 502: true, 504: true},
	}
}

// retryable reports whether a response status is eligible for retry.
func (rc RetryConfig) retryable(status int) bool {
	return rc.RetryableStatus[status]
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryWithBackoff executes fn until it succeeds, fails permanently, or the
// attempt budget runs out. fn reports via its second return value whether a
// failure is transient; permanent failures abort immediately.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, endpoint string, logger zerolog.Logger, fn func() (err error, transient bool)) error {
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err, transient := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("endpoint", endpoint).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		if !transient {
			return lastErr
		}

		// Last attempt: no point waiting.
		if attempt >= cfg.MaxAttempts {
			break
		}

		retriesTotal.WithLabelValues(endpoint).Inc()
		retryBackoffSeconds.WithLabelValues(endpoint).Observe(backoff.Seconds())

		logger.Debug().
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Retrying request after backoff")

		if err := sleep(ctx, backoff); err != nil {
			logger.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	retryExhaustedTotal.WithLabelValues(endpoint).Inc()
	logger.Warn().
		Str("endpoint", endpoint).
		Int("max_attempts", cfg.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, cfg.MaxAttempts, lastErr)
}
