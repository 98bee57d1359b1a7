// Package resilience builds circuit breakers for calls to upstream dependencies.
package resilience

import (
	"log/slog"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// NewCircuitBreaker returns a breaker that trips on consecutive failures or when the
// failure rate exceeds cfg.ErrorRatePercent. isSuccessful decides which errors count
// as failures; nil treats every non-nil error as one.
func NewCircuitBreaker[T any](name string, cfg config.CircuitBreakerConfig, isSuccessful func(error) bool, logger *slog.Logger) *gobreaker.CircuitBreaker[T] {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return ReadyToTrip(counts, cfg)
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}
	return gobreaker.NewCircuitBreaker[T](st)
}

// ReadyToTrip is the trip policy shared by every breaker in the service.
func ReadyToTrip(counts gobreaker.Counts, cfg config.CircuitBreakerConfig) bool {
	if counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
		return true
	}
	total := counts.TotalSuccesses + counts.TotalFailures
	return total > cfg.ConsecutiveFailures &&
		float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent)
}
