// Package breaker guards calls to external collaborators with a circuit
// breaker. Failures and open-circuit rejections surface as
// domain.ErrUpstreamUnavailable.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
	"github.com/denisok6893-rgb/apartment-advisor/internal/metrics"
)

type Config struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
}

func DefaultConfig() Config {
	return Config{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

func New(name string, cfg Config, logger zerolog.Logger) *Breaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = DefaultConfig().FailureThreshold
	}
	log := logger.With().Str("component", "breaker").Str("upstream", name).Logger()
	metrics.BreakerState.WithLabelValues(name).Set(0)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
		},
		// Caller cancellation is not a collaborator failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// Do runs fn through the breaker b. A nil breaker runs fn directly but still
// classifies its error as upstream.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if b == nil {
		v, err := fn()
		if err != nil {
			return zero, domain.Upstream("upstream", err)
		}
		return v, nil
	}

	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		metrics.RecordUpstreamFailure(b.name)
		return zero, domain.Upstream(b.name, err)
	}
	v, _ := res.(T)
	return v, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
