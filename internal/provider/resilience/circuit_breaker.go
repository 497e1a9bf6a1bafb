// Package resilience wraps calls to condition and directions providers with
// circuit breakers, per-attempt timeouts and exponential backoff retries.
package resilience

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Breaker defaults.
const (
	defaultHalfOpenProbes = 1
	defaultOpenTimeout    = 30 * time.Second
	defaultMinRequests    = 5
	defaultFailureRatio   = 0.5
)

// CircuitBreakerConfig holds configuration for a provider circuit breaker.
type CircuitBreakerConfig struct {
	Name string

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counts periodically. Zero never clears.
	Interval time.Duration

	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration

	// The circuit trips once MinRequests calls were made and at least
	// FailureRatio of them failed.
	MinRequests  uint32
	FailureRatio float64

	// ReadyToTrip replaces the MinRequests/FailureRatio rule when set.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called on every transition. When nil and Logger is
	// set, transitions are logged.
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
	Logger        *zerolog.Logger
}

// DefaultCircuitBreakerConfig returns the breaker used for provider clients.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  defaultHalfOpenProbes,
		Timeout:      defaultOpenTimeout,
		MinRequests:  defaultMinRequests,
		FailureRatio: defaultFailureRatio,
	}
}

// TripOnFailureRatio returns a ReadyToTrip func that opens the circuit when
// at least minRequests were made and the failure ratio reached ratio.
func TripOnFailureRatio(minRequests uint32, ratio float64) func(gobreaker.Counts) bool {
	if minRequests == 0 {
		minRequests = 1
	}
	return func(c gobreaker.Counts) bool {
		if c.Requests < minRequests {
			return false
		}
		return float64(c.TotalFailures)/float64(c.Requests) >= ratio
	}
}

func (c CircuitBreakerConfig) settings() gobreaker.Settings {
	s := gobreaker.Settings{
		Name:        c.Name,
		MaxRequests: c.MaxRequests,
		Interval:    c.Interval,
		Timeout:     c.Timeout,
		ReadyToTrip: c.ReadyToTrip,
	}
	if s.MaxRequests == 0 {
		s.MaxRequests = defaultHalfOpenProbes
	}
	if s.Timeout == 0 {
		s.Timeout = defaultOpenTimeout
	}
	if s.ReadyToTrip == nil {
		ratio := c.FailureRatio
		if ratio <= 0 {
			ratio = defaultFailureRatio
		}
		s.ReadyToTrip = TripOnFailureRatio(c.MinRequests, ratio)
	}

	switch {
	case c.OnStateChange != nil:
		s.OnStateChange = c.OnStateChange
	case c.Logger != nil:
		logger := c.Logger
		s.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		}
	}
	return s
}

// NewCircuitBreaker creates a circuit breaker guarding calls returning T.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](cfg.settings())
}
