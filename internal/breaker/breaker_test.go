package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
)

func TestDo_PassesThroughSuccess(t *testing.T) {
	b := New("test-success", DefaultConfig(), zerolog.Nop())

	v, err := Do(b, func() (int, error) { return 42, nil })

	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDo_WrapsFailureAsUpstream(t *testing.T) {
	b := New("test-failure", DefaultConfig(), zerolog.Nop())
	cause := errors.New("boom")

	_, err := Do(b, func() ([]string, error) { return nil, cause })

	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestDo_OpensAfterConsecutiveFailures(t *testing.T) {
	cfg := Config{MaxRequests: 1, Interval: time.Minute, Timeout: time.Hour, FailureThreshold: 3}
	b := New("test-open", cfg, zerolog.Nop())
	calls := 0
	fail := func() (int, error) {
		calls++
		return 0, errors.New("down")
	}

	for i := 0; i < 3; i++ {
		_, _ = Do(b, fail)
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	_, err := Do(b, fail)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, calls)
}

func TestDo_CancellationDoesNotTrip(t *testing.T) {
	cfg := Config{MaxRequests: 1, Interval: time.Minute, Timeout: time.Hour, FailureThreshold: 1}
	b := New("test-cancel", cfg, zerolog.Nop())

	_, err := Do(b, func() (int, error) { return 0, context.Canceled })

	assert.Error(t, err)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestDo_NilBreaker(t *testing.T) {
	_, err := Do[int](nil, func() (int, error) { return 0, errors.New("x") })
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}
