package resilience

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
)

var testCfg = config.CircuitBreakerConfig{
	ConsecutiveFailures: 3,
	ErrorRatePercent:    50,
	OpenTimeout:         time.Minute,
	HalfOpenRequests:    1,
}

func TestReadyToTrip(t *testing.T) {
	testCases := []struct {
		name     string
		counts   gobreaker.Counts
		expected bool
	}{
		{name: "no traffic", counts: gobreaker.Counts{}, expected: false},
		{name: "consecutive failures reached", counts: gobreaker.Counts{ConsecutiveFailures: 3, TotalFailures: 3}, expected: true},
		{name: "below consecutive failures", counts: gobreaker.Counts{ConsecutiveFailures: 2, TotalFailures: 2}, expected: false},
		{name: "error rate above threshold", counts: gobreaker.Counts{TotalSuccesses: 1, TotalFailures: 3, ConsecutiveFailures: 1}, expected: true},
		{name: "error rate at threshold", counts: gobreaker.Counts{TotalSuccesses: 2, TotalFailures: 2, ConsecutiveFailures: 1}, expected: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ReadyToTrip(tc.counts, testCfg))
		})
	}
}

func TestNewCircuitBreaker_OpensAfterFailures(t *testing.T) {
	// given
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cb := NewCircuitBreaker[int]("test", testCfg, nil, logger)
	boom := errors.New("boom")

	// when
	for range 3 {
		_, _ = cb.Execute(func() (int, error) { return 0, boom })
	}
	_, err := cb.Execute(func() (int, error) { return 1, nil })

	// then
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}
