package api

import (
	"time"

	"storefront/internal/logging"

	"github.com/sony/gobreaker/v2"
)

// BreakerSettings configures the optional circuit breaker.
type BreakerSettings struct {
	// MaxFailures consecutive transport or 5xx failures open the breaker.
	MaxFailures int
	// OpenTimeout is how long the breaker rejects calls before letting one probe through.
	OpenTimeout time.Duration
}

// WithBreaker fails calls fast while the API keeps failing. It never retries:
// a rejected call is reported as ErrCircuitOpen without touching the network.
// 4xx responses, including 401, are successes as far as the breaker is concerned.
func WithBreaker(s BreakerSettings) Option {
	return func(c *Client) {
		maxFailures := s.MaxFailures
		if maxFailures <= 0 {
			maxFailures = 5
		}
		c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
			Name:        "storefront-api",
			MaxRequests: 1,
			Timeout:     s.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(maxFailures)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Get(logging.CategoryAPI).Warn("circuit %s: %s -> %s", name, from, to)
			},
		})
	}
}
