package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig controls when the ledger circuit breaker opens.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before letting a probe through.
	OpenTimeout time.Duration
	// Interval clears the closed-state counts; zero never clears them.
	Interval time.Duration
}

// DefaultBreakerConfig is used by the service binaries.
var DefaultBreakerConfig = BreakerConfig{
	ConsecutiveFailures: 5,
	OpenTimeout:         30 * time.Second,
	Interval:            time.Minute,
}

func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// A 4xx means the ledger is up and answered; only outages count against it.
		// A caller that cancelled or ran out of time says nothing about the ledger either.
		IsSuccessful: func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.code < 500
			}
			var ce *callerError
			if errors.As(err, &ce) || errors.Is(err, context.Canceled) {
				return true
			}
			return err == nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}
