// Package retry wraps calls to external collaborators with a bounded retry policy.
package retry

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"time"
)

const defaultBaseDelay = 300 * time.Millisecond

// Policy bounds how often an operation is attempted.
// Attempts <= 1 means the operation runs exactly once.
type Policy struct {
	Attempts    int
	BaseDelay   time.Duration
	ShouldRetry func(error) bool
}

// Do runs fn until it succeeds, the policy is exhausted, or the error is not retryable.
// The delay doubles after each failed attempt.
func Do[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = defaultBaseDelay
	}
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = Transient
	}

	var (
		out T
		err error
	)
	for attempt := 1; ; attempt++ {
		out, err = fn(ctx)
		if err == nil || attempt >= attempts || !shouldRetry(err) {
			return out, err
		}
		log.Printf("retry op=%s attempt=%d error=%s", op, attempt, sanitizeError(err))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
		delay *= 2
	}
}

// Transient reports whether err looks like a timeout, a dropped connection, or a 5xx.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "client.timeout") {
		return true
	}
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "unexpected eof")
}

func sanitizeError(err error) string {
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	if len(msg) > 200 {
		return msg[:200] + "..."
	}
	return msg
}
