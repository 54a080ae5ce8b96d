package matching

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
)

type fakeSource struct {
	items []domain.HousingCandidate
	err   error
	got   domain.CandidateQuery
}

func (f *fakeSource) Candidates(_ context.Context, q domain.CandidateQuery) ([]domain.HousingCandidate, error) {
	f.got = q
	return f.items, f.err
}

func f64(v float64) *float64 { return &v }

func newEngine() *Engine { return NewEngine(DefaultPolicy(), zerolog.Nop()) }

func residence() domain.ClientProfile {
	return domain.ClientProfile{
		FinancialProfile: domain.FinancialProfile{Purpose: domain.PurposeResidence, AnnualSalary: 8000, AvailableCash: 30000},
	}
}

func gapInvestor() domain.ClientProfile {
	p := residence()
	p.Purpose = domain.PurposeGapInvestment
	return p
}

func envelope(maxBudget float64) domain.AffordabilityEnvelope {
	return domain.AffordabilityEnvelope{MaxBudget: maxBudget}
}

func TestRank_TargetUtilizationBeatsUnderUse(t *testing.T) {
	e := newEngine()
	cands := []domain.HousingCandidate{
		{ID: 1, ComplexName: "저가", Sigungu: "노원구", SalePrice: 60000},
		{ID: 2, ComplexName: "적정", Sigungu: "노원구", SalePrice: 90000},
	}

	got := e.Rank(cands, envelope(100000), residence(), 5)

	require.Len(t, got, 2)
	byID := map[int64]domain.ScoredRecommendation{}
	for _, r := range got {
		byID[r.Candidate.ID] = r
	}
	assert.Greater(t, byID[2].Breakdown.Price, byID[1].Breakdown.Price)
	assert.Equal(t, 35.0, byID[2].Breakdown.Price)
	assert.InDelta(t, 30.625, byID[1].Breakdown.Price, 1e-9)
	assert.Equal(t, int64(2), got[0].Candidate.ID)
}

func TestRecommend_EmptySourceIsNotAnError(t *testing.T) {
	e := newEngine()

	got, err := e.Recommend(context.Background(), &fakeSource{}, Request{
		Profile:  residence(),
		Envelope: envelope(50000),
		TopN:     3,
	})

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRecommend_SourceFailureIsUpstream(t *testing.T) {
	e := newEngine()
	cause := errors.New("connection refused")

	got, err := e.Recommend(context.Background(), &fakeSource{err: cause}, Request{
		Profile:  residence(),
		Envelope: envelope(50000),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, got)
}

func TestRecommend_PassesQueryToSource(t *testing.T) {
	e := newEngine()
	src := &fakeSource{}
	profile := gapInvestor()
	profile.PreferredArea = "송파"
	profile.MinPyeong = 20

	_, err := e.Recommend(context.Background(), src, Request{
		Profile:    profile,
		Envelope:   envelope(40000),
		FetchLimit: 50,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.CandidateQuery{
		Purpose:       domain.PurposeGapInvestment,
		BudgetCeiling: 40000,
		Area:          "송파",
		MinPyeong:     20,
		Limit:         50,
	}, src.got)
}

func TestRank_ReappliesFilterToUnfilteredSource(t *testing.T) {
	e := newEngine()
	src := &fakeSource{items: []domain.HousingCandidate{
		{ID: 1, Sigungu: "강남구", SalePrice: 150000},
		{ID: 2, Sigungu: "강남구", SalePrice: 70000},
	}}

	got, err := e.Recommend(context.Background(), src, Request{Profile: residence(), Envelope: envelope(74477.8)})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].Candidate.ID)
}

func TestRank_ResidenceNeverExceedsBudget(t *testing.T) {
	e := newEngine()
	var cands []domain.HousingCandidate
	for i := 0; i < 30; i++ {
		cands = append(cands, domain.HousingCandidate{ID: int64(i), Sigungu: "마포구", SalePrice: float64(40000 + i*2500)})
	}

	got := e.Rank(cands, envelope(74477.8), residence(), 30)

	require.NotEmpty(t, got)
	for _, r := range got {
		assert.LessOrEqual(t, r.Candidate.SalePrice, 74477.8)
	}
}

func TestRank_GapInvestmentUsesGap(t *testing.T) {
	e := newEngine()
	cands := []domain.HousingCandidate{
		{ID: 1, SalePrice: 120000, LeasePrice: f64(90000), LeaseRate: 75},
		{ID: 2, SalePrice: 120000, Gap: f64(50000), LeaseRate: 58},
		{ID: 3, SalePrice: 40000},
	}

	got := e.Rank(cands, envelope(40000), gapInvestor(), 10)

	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].Candidate.ID)
	gap, _ := got[0].Candidate.GapAmount()
	assert.LessOrEqual(t, gap, 40000.0)
	assert.Equal(t, 12.0, got[0].Breakdown.Purpose)
}

func TestRank_AreaAndSizeFilters(t *testing.T) {
	e := newEngine()
	cands := []domain.HousingCandidate{
		{ID: 1, Sigungu: "송파구", SalePrice: 50000, Pyeong: 32},
		{ID: 2, Sigungu: "송파구", SalePrice: 50000, Pyeong: 18},
		{ID: 3, Sigungu: "강서구", SalePrice: 50000, Pyeong: 32},
		{ID: 4, Sigungu: "송파구", SalePrice: 50000, Pyeong: 48},
	}
	profile := residence()
	profile.PreferredArea = "송파"
	profile.MinPyeong = 20
	profile.MaxPyeong = 40

	got := e.Rank(cands, envelope(70000), profile, 10)

	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].Candidate.ID)
}

func TestRank_DeterministicAndStable(t *testing.T) {
	e := newEngine()
	cands := []domain.HousingCandidate{
		{ID: 1, Sigungu: "노원구", SalePrice: 60000, ChangeFromPeak: 80},
		{ID: 2, Sigungu: "노원구", SalePrice: 60000, ChangeFromPeak: 80},
		{ID: 3, Sigungu: "서초구", SalePrice: 65000, ChangeFromPeak: 97, Pyeong: 30, TotalHouseholds: 1200},
		{ID: 4, Sigungu: "노원구", SalePrice: 60000, ChangeFromPeak: 80},
	}
	profile := residence()

	first := e.Rank(cands, envelope(74477.8), profile, 10)
	second := e.Rank(cands, envelope(74477.8), profile, 10)

	assert.Equal(t, first, second)
	require.Len(t, first, 4)
	assert.Equal(t, int64(3), first[0].Candidate.ID)
	// Equal scores keep input order.
	assert.Equal(t, []int64{1, 2, 4}, []int64{first[1].Candidate.ID, first[2].Candidate.ID, first[3].Candidate.ID})
}

func TestRank_GatingAndTruncation(t *testing.T) {
	e := newEngine()
	var cands []domain.HousingCandidate
	for i := 0; i < 8; i++ {
		cands = append(cands, domain.HousingCandidate{ID: int64(i), Sigungu: "성동구", SalePrice: float64(50000 + i*1000), ChangeFromPeak: float64(60 + i*5)})
	}

	got := e.Rank(cands, envelope(74000), residence(), 3)

	require.Len(t, got, 3)
	free := 0
	for i, r := range got {
		assert.Equal(t, i+1, r.Rank)
		if r.Tier == domain.TierFree {
			free++
			assert.Equal(t, 1, r.Rank)
		} else {
			assert.Equal(t, domain.TierGated, r.Tier)
		}
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].Score, r.Score)
		}
	}
	assert.Equal(t, 1, free)
}

func TestRank_DefaultTopN(t *testing.T) {
	e := newEngine()
	var cands []domain.HousingCandidate
	for i := 0; i < 9; i++ {
		cands = append(cands, domain.HousingCandidate{ID: int64(i), SalePrice: 1000})
	}
	assert.Len(t, e.Rank(cands, envelope(5000), residence(), 0), 5)
}

func TestRank_MalformedFieldsUseNeutralDefaults(t *testing.T) {
	e := newEngine()
	cands := []domain.HousingCandidate{
		{ID: 1, SalePrice: math.NaN(), ChangeFromPeak: math.NaN(), ExclusiveArea: math.Inf(1), LeaseRate: -3},
		{ID: 2, SalePrice: 50000, Pyeong: math.NaN()},
	}

	got := e.Rank(cands, envelope(60000), residence(), 10)

	require.Len(t, got, 2)
	for _, r := range got {
		assert.False(t, math.IsNaN(r.Score))
		assert.Equal(t, 10.0, r.Breakdown.Market)
	}
}

func TestRank_ZeroBudgetFiltersEverything(t *testing.T) {
	e := newEngine()
	got := e.Rank([]domain.HousingCandidate{{ID: 1, SalePrice: 1}}, envelope(0), residence(), 5)
	assert.Empty(t, got)
}

func TestScore_ReasonsAndCommute(t *testing.T) {
	e := newEngine()
	profile := residence()
	profile.WorkLocation = "강남역"

	rec := e.Score(domain.HousingCandidate{
		ComplexName:     "래미안",
		Sigungu:         "강남구",
		SalePrice:       65000,
		ChangeFromPeak:  96,
		Pyeong:          30,
		TotalHouseholds: 1500,
	}, envelope(74477.8), profile)

	assert.Equal(t, 35.0, rec.Breakdown.Price)
	assert.Equal(t, 30.0, rec.Breakdown.Market)
	assert.Equal(t, 20.0, rec.Breakdown.Location)
	assert.Equal(t, 15.0, rec.Breakdown.Purpose)
	assert.Equal(t, 100.0, rec.Score)
	assert.Equal(t, 25, rec.CommuteMinutes)

	var msgs []string
	for _, r := range rec.Reasons {
		msgs = append(msgs, r.Message)
	}
	assert.Equal(t, []string{
		"예산 대비 적정한 가격대",
		"전고점 대비 높은 회복률",
		"프리미엄 입지",
		"가족 거주에 적합한 면적",
		"출퇴근 지역과 가까운 입지",
	}, msgs)

	text := Describe(rec, profile.Purpose)
	assert.Contains(t, text, "래미안은 실거주 목적에 적합한 매물입니다.")
	assert.Contains(t, text, "1. 예산 대비 적정한 가격대")
	assert.Contains(t, text, "출퇴근 시간: 약 25분")
}

func TestScore_LocationImpactsMatchClampedScore(t *testing.T) {
	p := DefaultPolicy()
	p.PremiumPoints = 19
	e := NewEngine(p, zerolog.Nop())
	profile := residence()
	profile.WorkLocation = "강남역"

	rec := e.Score(domain.HousingCandidate{Sigungu: "강남구", SalePrice: 65000}, envelope(74477.8), profile)

	assert.Equal(t, 20.0, rec.Breakdown.Location)
	impacts := map[string]float64{}
	for _, r := range rec.Reasons {
		impacts[r.Type] = r.Impact
	}
	assert.Equal(t, 19.0, impacts[ReasonLocation])
	assert.Equal(t, 1.0, impacts[ReasonCommute])
	assert.Equal(t, rec.Breakdown.Location, impacts[ReasonLocation]+impacts[ReasonCommute])
}

func TestLoadPolicyFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scoring.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"weights":{"price":40,"market":25,"location":20,"purpose":15},"premium_areas":["용산구"]}`), 0o600))

	p, err := LoadPolicyFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 40.0, p.Weights.Price)
	assert.Equal(t, []string{"용산구"}, p.PremiumAreas)
	assert.Equal(t, DefaultPolicy().ResidenceBand, p.ResidenceBand)

	p, err = LoadPolicyFromFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
	assert.Equal(t, DefaultPolicy(), p)

	require.NoError(t, os.WriteFile(path, []byte(`{"gap_band":{"min":0.9,"max":0.5}}`), 0o600))
	_, err = LoadPolicyFromFile(path)
	assert.Error(t, err)
}
