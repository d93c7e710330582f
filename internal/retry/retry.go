package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeagent/internal/domain"
)

// Config configures retry behavior for external service calls.
type Config struct {
	MaxAttempts     int           // Retries after the first attempt
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Backoff cap
}

// DefaultConfig returns sensible defaults for provider API calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups transient error substrings, matched
// case-insensitively when no typed error is available.
var retryablePatterns = []string{
	"rate limit", "quota exceeded", "429",
	"500", "502", "503", "504", "unavailable",
	"connection reset", "connection refused", "timeout", "temporary",
}

// Retryable reports whether err looks transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Retryable()
	}
	msg := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// Do runs fn with exponential backoff, honoring ctx between attempts.
// Non-retryable errors fail immediately.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	delay := cfg.InitialInterval

	for attempt := 0; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !Retryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay *= 2
			if delay > cfg.MaxInterval {
				delay = cfg.MaxInterval
			}
		}
	}

	return fmt.Errorf("after %d retries: %w", cfg.MaxAttempts, lastErr)
}
