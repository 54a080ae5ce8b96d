package storage

import (
	"context"
	"time"

	"github.com/denisok6893-rgb/apartment-advisor/internal/breaker"
	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
)

// CandidateSource serves ranking queries from the store. Each fetch runs
// under its own timeout and through the breaker, so a slow or failing
// database surfaces as domain.ErrUpstreamUnavailable.
type CandidateSource struct {
	store   *Store
	breaker *breaker.Breaker
	timeout time.Duration
}

func NewCandidateSource(store *Store, br *breaker.Breaker, timeout time.Duration) *CandidateSource {
	return &CandidateSource{store: store, breaker: br, timeout: timeout}
}

func (c *CandidateSource) Candidates(ctx context.Context, q domain.CandidateQuery) ([]domain.HousingCandidate, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return breaker.Do(c.breaker, func() ([]domain.HousingCandidate, error) {
		return c.store.QueryCandidates(ctx, q)
	})
}
