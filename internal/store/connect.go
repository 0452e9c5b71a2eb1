package store

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	maxConnectBackoff = 10 * time.Second
	connectJitter     = 0.25
)

// connectRetry holds the backoff schedule for opening a store.
type connectRetry struct {
	attempts int
	backoff  time.Duration
}

func newConnectRetry(attempts, backoffMs int) connectRetry {
	r := connectRetry{attempts: attempts, backoff: time.Duration(backoffMs) * time.Millisecond}
	if r.attempts <= 0 {
		r.attempts = 1
	}
	if r.backoff <= 0 {
		r.backoff = 500 * time.Millisecond
	}
	return r
}

// do calls fn until it succeeds, returns a permanent error, or the attempts
// run out. Context cancellation stops the loop immediately.
func (r connectRetry) do(ctx context.Context, driver string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !isTransientConnectError(lastErr) || attempt == r.attempts-1 {
			return lastErr
		}

		delay := r.delay(attempt)
		zap.L().Warn("store: connect failed, retrying",
			zap.String("driver", driver),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(lastErr),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

func (r connectRetry) delay(attempt int) time.Duration {
	d := float64(r.backoff) * math.Pow(2, float64(attempt))
	if d > float64(maxConnectBackoff) {
		d = float64(maxConnectBackoff)
	}
	d += (rand.Float64()*2 - 1) * d * connectJitter
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// isTransientConnectError reports whether err looks like a network or
// server-startup failure worth retrying. Bad credentials and malformed
// connection strings are permanent.
func isTransientConnectError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 57P03 cannot_connect_now, 53300 too_many_connections.
		return pgErr.Code == "57P03" || pgErr.Code == "53300"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{"connection refused", "connection reset", "i/o timeout", "no such host", "the database system is starting up"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
