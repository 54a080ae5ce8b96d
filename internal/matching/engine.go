package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
)

const defaultTopN = 5

// CandidateSource returns sale-type candidates for a query. Implementations
// may pre-filter; the engine applies its own filter regardless.
type CandidateSource interface {
	Candidates(ctx context.Context, q domain.CandidateQuery) ([]domain.HousingCandidate, error)
}

type Engine struct {
	policy Policy
	logger zerolog.Logger
}

func NewEngine(p Policy, logger zerolog.Logger) *Engine {
	return &Engine{
		policy: p,
		logger: logger.With().Str("component", "matching").Logger(),
	}
}

func (e *Engine) Policy() Policy { return e.policy }

// Request bundles what Recommend needs. FetchLimit bounds how many rows the
// source may return.
type Request struct {
	Profile    domain.ClientProfile
	Envelope   domain.AffordabilityEnvelope
	TopN       int
	FetchLimit int
}

// Recommend fetches candidates and ranks them. An empty pool is a valid
// result; a source failure is returned as domain.ErrUpstreamUnavailable.
func (e *Engine) Recommend(ctx context.Context, src CandidateSource, req Request) ([]domain.ScoredRecommendation, error) {
	q := domain.CandidateQuery{
		Purpose:       req.Profile.Purpose,
		BudgetCeiling: req.Envelope.MaxBudget,
		Area:          req.Profile.PreferredArea,
		MinPyeong:     req.Profile.MinPyeong,
		MaxPyeong:     req.Profile.MaxPyeong,
		Limit:         req.FetchLimit,
	}
	cands, err := src.Candidates(ctx, q)
	if err != nil {
		return nil, domain.Upstream("candidate source", err)
	}

	out := e.Rank(cands, req.Envelope, req.Profile, req.TopN)
	e.logger.Debug().
		Str("purpose", string(q.Purpose)).
		Float64("budget_ceiling", q.BudgetCeiling).
		Int("fetched", len(cands)).
		Int("returned", len(out)).
		Msg("recommend")
	return out, nil
}

// Rank filters, scores, orders and gates candidates. It is deterministic:
// ties keep input order.
func (e *Engine) Rank(cands []domain.HousingCandidate, env domain.AffordabilityEnvelope, profile domain.ClientProfile, topN int) []domain.ScoredRecommendation {
	out := make([]domain.ScoredRecommendation, 0, len(cands))
	for _, c := range cands {
		if !Eligible(c, env, profile) {
			continue
		}
		out = append(out, e.Score(c, env, profile))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topN <= 0 {
		topN = defaultTopN
	}
	if len(out) > topN {
		out = out[:topN]
	}
	for i := range out {
		out[i].Rank = i + 1
		out[i].Tier = domain.TierGated
		if i == 0 {
			out[i].Tier = domain.TierFree
		}
	}
	return out
}

// Eligible applies the hard filters: the purpose budget measure against
// the ceiling, then area and floor-area bounds. Residence compares the sale
// price; gap investment requires a known gap and compares that.
func Eligible(c domain.HousingCandidate, env domain.AffordabilityEnvelope, profile domain.ClientProfile) bool {
	measure, ok := BudgetMeasure(c, profile.Purpose)
	if !ok || measure > env.MaxBudget {
		return false
	}
	if !c.MatchesArea(profile.PreferredArea) {
		return false
	}
	pyeong := c.FloorPyeong()
	if profile.MinPyeong > 0 && pyeong < profile.MinPyeong {
		return false
	}
	if profile.MaxPyeong > 0 && pyeong > profile.MaxPyeong {
		return false
	}
	return true
}

// BudgetMeasure returns the amount compared against the budget ceiling for
// a purpose and whether it is known.
func BudgetMeasure(c domain.HousingCandidate, purpose domain.Purpose) (float64, bool) {
	if purpose == domain.PurposeGapInvestment {
		return c.GapAmount()
	}
	return domain.Sanitize(c.SalePrice), true
}

// Score computes the breakdown for one eligible candidate.
func (e *Engine) Score(c domain.HousingCandidate, env domain.AffordabilityEnvelope, profile domain.ClientProfile) domain.ScoredRecommendation {
	p := e.policy
	var reasons []domain.ScoreReason
	add := func(typ, msg string, points float64) {
		if msg != "" {
			reasons = append(reasons, domain.ScoreReason{Type: typ, Message: msg, Impact: round1(points)})
		}
	}

	var b domain.ScoreBreakdown

	band := p.ResidenceBand
	if profile.Purpose == domain.PurposeGapInvestment {
		band = p.GapBand
	}
	measure, _ := BudgetMeasure(c, profile.Purpose)
	var util float64
	if env.MaxBudget > 0 {
		util = domain.Sanitize(measure) / env.MaxBudget
	}
	pts, msg := PriceScore(util, band, p.Weights.Price, p.UnderPenalty, p.OverPenalty)
	b.Price = clamp(pts, 0, p.Weights.Price)
	add(ReasonPrice, msg, b.Price)

	pts, msg = StepScore(domain.Sanitize(c.ChangeFromPeak), p.MarketTiers, p.MarketDefault)
	b.Market = clamp(pts, 0, p.Weights.Market)
	add(ReasonMarket, msg, b.Market)

	pts, msg = LocationScore(c.Sigungu, p)
	b.Location = clamp(pts, 0, p.Weights.Location)
	add(ReasonLocation, msg, b.Location)
	if CommuteOverlap(c.Sigungu, profile.WorkLocation) {
		base := b.Location
		b.Location = clamp(base+p.CommuteBonus, 0, p.Weights.Location)
		add(ReasonCommute, "출퇴근 지역과 가까운 입지", b.Location-base)
	}

	if profile.Purpose == domain.PurposeGapInvestment {
		pts, msg = StepScore(domain.Sanitize(c.LeaseRate), p.LeaseRateTiers, p.LeaseRateDefault)
	} else {
		pts, msg = ResidenceScore(c.FloorPyeong(), c.TotalHouseholds, p)
	}
	b.Purpose = clamp(pts, 0, p.Weights.Purpose)
	add(ReasonPurpose, msg, b.Purpose)

	return domain.ScoredRecommendation{
		Candidate:      c,
		Score:          round1(b.Total()),
		Breakdown:      b,
		Reasons:        topReasons(reasons, p.MaxReasons),
		CommuteMinutes: EstimateCommute(profile.WorkLocation, p),
	}
}

// topReasons orders reasons by impact, keeping sub-score order on ties.
func topReasons(reasons []domain.ScoreReason, max int) []domain.ScoreReason {
	sort.SliceStable(reasons, func(i, j int) bool { return reasons[i].Impact > reasons[j].Impact })
	if max <= 0 {
		max = 5
	}
	if len(reasons) > max {
		reasons = reasons[:max]
	}
	return reasons
}

// Describe renders the reason list as user-facing Korean text.
func Describe(rec domain.ScoredRecommendation, purpose domain.Purpose) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s은 %s 목적에 적합한 매물입니다.\n", rec.Candidate.ComplexName, purpose.Label())
	for i, r := range rec.Reasons {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Message)
	}
	if rec.CommuteMinutes > 0 {
		fmt.Fprintf(&b, "출퇴근 시간: 약 %d분", rec.CommuteMinutes)
	}
	return strings.TrimRight(b.String(), "\n")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
