package advisor

import (
	"context"

	"github.com/denisok6893-rgb/apartment-advisor/internal/budget"
	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
	"github.com/denisok6893-rgb/apartment-advisor/internal/metrics"
)

type BudgetResult struct {
	Envelope     domain.AffordabilityEnvelope `json:"envelope"`
	Explanation  string                       `json:"explanation"`
	LoanProducts []budget.LoanProduct         `json:"loan_products"`
}

// Budget computes an envelope without a session. It only uses
// Deps.Calculator.
func (s *Service) Budget(fp domain.FinancialProfile) BudgetResult {
	calc := s.deps.Calculator
	env := calc.Compute(fp)
	metrics.BudgetComputations.WithLabelValues(string(fp.Purpose)).Inc()
	return BudgetResult{
		Envelope:     env,
		Explanation:  calc.Explain(fp, env),
		LoanProducts: calc.LoanProducts(env.MaxLoanAmount, fp.Purpose),
	}
}

type MatchResult struct {
	Envelope        domain.AffordabilityEnvelope  `json:"envelope"`
	Recommendations []domain.ScoredRecommendation `json:"recommendations"`
}

// Match ranks inventory for an explicit profile. topN <= 0 uses the
// configured default.
func (s *Service) Match(ctx context.Context, profile domain.ClientProfile, topN int) (MatchResult, error) {
	if !profile.Ready() {
		return MatchResult{}, domain.ErrProfileIncomplete
	}
	if topN <= 0 {
		topN = s.opts.TopN
	}
	env := s.deps.Calculator.Compute(profile.FinancialProfile)
	metrics.BudgetComputations.WithLabelValues(string(profile.Purpose)).Inc()

	recs, err := s.recommend(ctx, profile, env, topN)
	if err != nil {
		return MatchResult{}, err
	}
	return MatchResult{Envelope: env, Recommendations: recs}, nil
}
