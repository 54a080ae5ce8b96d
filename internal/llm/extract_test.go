package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"30000", 30000, true},
		{"8,000", 8000, true},
		{"3억", 30000, true},
		{"3억 5천", 35000, true},
		{"3억5000만원", 35000, true},
		{"8천만원", 8000, true},
		{"5000만", 5000, true},
		{"1.5억", 15000, true},
		{"80000000원", 8000, true},
		{"50만원", 50, true},
		{"", 0, false},
		{"많이", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParsePatch_AliasesAndNulls(t *testing.T) {
	p := ParsePatch(`설명입니다 {"annual_salary": "7,000", "available_cash": null, "preferredArea": "송파구", "debt": 1200} 끝`)
	require.NotNil(t, p.AnnualSalary)
	assert.Equal(t, 7000.0, *p.AnnualSalary)
	assert.Nil(t, p.AvailableCash)
	require.NotNil(t, p.AnnualDebtService)
	assert.Equal(t, 1200.0, *p.AnnualDebtService)
	require.NotNil(t, p.PreferredArea)
	assert.Equal(t, "송파구", *p.PreferredArea)
	assert.Nil(t, p.Purpose)
}

func TestParsePatch_UnknownPurposeDropped(t *testing.T) {
	p := ParsePatch(`{"purpose": "retirement", "salary": 5000}`)
	assert.Nil(t, p.Purpose)
	require.NotNil(t, p.AnnualSalary)
}

func TestParsePatch_NoObject(t *testing.T) {
	assert.True(t, ParsePatch("").Empty())
	assert.True(t, ParsePatch("no json here").Empty())
	assert.True(t, ParsePatch(`{"salary": }`).Empty())
}

func TestRuleExtractor(t *testing.T) {
	ctx := context.Background()

	p, err := RuleExtractor{}.ExtractProfile(ctx, "실거주 목적이고 연봉 8000만원, 현금 3억 있어요. 강남역으로 출근해요")
	require.NoError(t, err)
	require.NotNil(t, p.Purpose)
	assert.Equal(t, domain.PurposeResidence, *p.Purpose)
	require.NotNil(t, p.AnnualSalary)
	assert.Equal(t, 8000.0, *p.AnnualSalary)
	require.NotNil(t, p.AvailableCash)
	assert.Equal(t, 30000.0, *p.AvailableCash)
	require.NotNil(t, p.WorkLocation)
	assert.Equal(t, "강남역", *p.WorkLocation)

	p, err = RuleExtractor{}.ExtractProfile(ctx, "갭투자 생각 중이에요. 회사는 여의도에 있고 송파구 쪽을 선호해요")
	require.NoError(t, err)
	require.NotNil(t, p.Purpose)
	assert.Equal(t, domain.PurposeGapInvestment, *p.Purpose)
	require.NotNil(t, p.WorkLocation)
	assert.Equal(t, "여의도", *p.WorkLocation)
	require.NotNil(t, p.PreferredArea)
	assert.Equal(t, "송파구", *p.PreferredArea)
	assert.Nil(t, p.AnnualSalary)

	p, err = RuleExtractor{}.ExtractProfile(ctx, "안녕하세요")
	require.NoError(t, err)
	assert.True(t, p.Empty())
}

func sampleRecs() []domain.ScoredRecommendation {
	return []domain.ScoredRecommendation{
		{
			Candidate: domain.HousingCandidate{ComplexName: "래미안", Sigungu: "서울 강남구", SalePrice: 70000},
			Score:     88.5, Rank: 1, Tier: domain.TierFree, CommuteMinutes: 25,
			Reasons:  []domain.ScoreReason{{Type: "price", Message: "예산 대비 적정 가격", Impact: 35}},
			Warnings: []string{"부대비용 포함 시 자금 부족"},
		},
		{
			Candidate: domain.HousingCandidate{ComplexName: "비밀단지", Sigungu: "서울 송파구", SalePrice: 65000},
			Score:     80, Rank: 2, Tier: domain.TierGated,
		},
	}
}

func TestRenderContext(t *testing.T) {
	out := RenderContext(TurnContext{
		Profile:         domain.ClientProfile{FinancialProfile: domain.FinancialProfile{AnnualSalary: 8000}},
		Envelope:        &domain.AffordabilityEnvelope{MaxBudget: 74477.76},
		Recommendations: sampleRecs(),
	})
	assert.Contains(t, out, "연봉: 8,000만원")
	assert.Contains(t, out, "구매 목적(실거주/갭투자), 보유 현금")
	assert.Contains(t, out, "1위: 래미안")
	assert.Contains(t, out, "2위: (프리미엄)")
	assert.Contains(t, out, "주의: 부대비용 포함 시 자금 부족")
	assert.NotContains(t, out, "비밀단지")
}

func TestTemplateResponder(t *testing.T) {
	ctx := context.Background()

	out, err := TemplateResponder{}.Reply(ctx, TurnContext{})
	require.NoError(t, err)
	assert.Contains(t, out, "연봉")

	out, err = TemplateResponder{}.Reply(ctx, TurnContext{
		Profile:         domain.ClientProfile{FinancialProfile: domain.FinancialProfile{Purpose: domain.PurposeResidence}},
		Envelope:        &domain.AffordabilityEnvelope{MaxBudget: 70000},
		Explanation:     "예산 설명",
		Recommendations: sampleRecs(),
	})
	require.NoError(t, err)
	assert.Contains(t, out, "예산 설명")
	assert.Contains(t, out, "1위 추천: 래미안")
	assert.Contains(t, out, "⚠️ 부대비용 포함 시 자금 부족")
	assert.Contains(t, out, "나머지 1개")
	assert.NotContains(t, out, "비밀단지")

	out, err = TemplateResponder{}.Reply(ctx, TurnContext{Envelope: &domain.AffordabilityEnvelope{}})
	require.NoError(t, err)
	assert.Contains(t, out, "찾지 못했어요")

	out, err = TemplateResponder{}.Reply(ctx, TurnContext{Envelope: &domain.AffordabilityEnvelope{}, RecommendationsUnavailable: true})
	require.NoError(t, err)
	assert.Contains(t, out, "불러올 수 없어요")
	assert.NotContains(t, out, "찾지 못했어요")
}

func TestRenderContext_UnavailableListingsAreNotEmptyListings(t *testing.T) {
	env := &domain.AffordabilityEnvelope{MaxBudget: 70000}

	out := RenderContext(TurnContext{Envelope: env})
	assert.Contains(t, out, "조건에 맞는 매물이 없습니다.")

	out = RenderContext(TurnContext{Envelope: env, RecommendationsUnavailable: true})
	assert.Contains(t, out, "매물 조회가 일시적으로 불가능합니다.")
	assert.NotContains(t, out, "조건에 맞는 매물이 없습니다.")
}
