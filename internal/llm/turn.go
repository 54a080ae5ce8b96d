package llm

import (
	"fmt"
	"strings"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
	"github.com/denisok6893-rgb/apartment-advisor/internal/money"
)

// TurnContext is everything a responder needs to phrase one reply.
// Envelope is nil until the profile is ready. RecommendationsUnavailable
// marks a failed listing lookup, as opposed to no eligible listing.
type TurnContext struct {
	Profile                    domain.ClientProfile
	Envelope                   *domain.AffordabilityEnvelope
	Explanation                string
	Recommendations            []domain.ScoredRecommendation
	RecommendationsUnavailable bool
	History                    []domain.Message
	UserMessage                string
}

// MissingFields lists the Korean labels of profile fields still needed
// before a budget can be computed.
func MissingFields(p domain.ClientProfile) []string {
	var out []string
	if !p.Purpose.Valid() {
		out = append(out, "구매 목적(실거주/갭투자)")
	}
	if p.AnnualSalary <= 0 {
		out = append(out, "연봉")
	}
	if p.AvailableCash <= 0 {
		out = append(out, "보유 현금")
	}
	return out
}

// RenderContext formats the computed results as a system message so the
// model quotes numbers rather than inventing them.
func RenderContext(t TurnContext) string {
	var b strings.Builder
	b.WriteString("[사용자 정보]\n")
	p := t.Profile
	if p.Purpose.Valid() {
		fmt.Fprintf(&b, "- 목적: %s\n", p.Purpose.Label())
	}
	if p.AnnualSalary > 0 {
		fmt.Fprintf(&b, "- 연봉: %s\n", money.FormatManwon(p.AnnualSalary))
	}
	if p.AvailableCash > 0 {
		fmt.Fprintf(&b, "- 보유 현금: %s\n", money.FormatManwon(p.AvailableCash))
	}
	if p.AnnualDebtService > 0 {
		fmt.Fprintf(&b, "- 연간 부채 상환액: %s\n", money.FormatManwon(p.AnnualDebtService))
	}
	if p.WorkLocation != "" {
		fmt.Fprintf(&b, "- 출퇴근 지역: %s\n", p.WorkLocation)
	}
	if p.PreferredArea != "" {
		fmt.Fprintf(&b, "- 선호 지역: %s\n", p.PreferredArea)
	}
	if missing := MissingFields(p); len(missing) > 0 {
		fmt.Fprintf(&b, "- 아직 모르는 정보: %s\n", strings.Join(missing, ", "))
	}

	if t.Envelope != nil {
		e := t.Envelope
		b.WriteString("\n[예산 계산 결과]\n")
		fmt.Fprintf(&b, "- 최대 대출: %s\n", money.FormatManwon(e.MaxLoanAmount))
		fmt.Fprintf(&b, "- 최대 구매 가능 금액: %s\n", money.FormatManwon(e.MaxBudget))
		fmt.Fprintf(&b, "- 월 상환액: %s\n", money.FormatManwon(e.MonthlyPayment))
		fmt.Fprintf(&b, "- DSR %.1f%%, LTV %.1f%%\n", money.Percent(e.DSRRatio), money.Percent(e.LTVRatio))
	}

	if len(t.Recommendations) > 0 {
		b.WriteString("\n[추천 매물]\n")
		for _, r := range t.Recommendations {
			if r.Tier == domain.TierGated {
				fmt.Fprintf(&b, "%d위: (프리미엄) 점수 %.1f\n", r.Rank, r.Score)
				continue
			}
			c := r.Candidate
			fmt.Fprintf(&b, "%d위: %s (%s) 매매가 %s, 점수 %.1f, 예상 출퇴근 %d분\n",
				r.Rank, c.ComplexName, c.Sigungu, money.FormatManwon(c.SalePrice), r.Score, r.CommuteMinutes)
			for _, reason := range r.Reasons {
				fmt.Fprintf(&b, "  - %s\n", reason.Message)
			}
			for _, w := range r.Warnings {
				fmt.Fprintf(&b, "  - 주의: %s\n", w)
			}
		}
	} else if t.Envelope != nil && t.RecommendationsUnavailable {
		b.WriteString("\n[추천 매물]\n매물 조회가 일시적으로 불가능합니다. 매물이 없다고 말하지 말고 잠시 후 다시 확인해 드린다고 안내하세요.\n")
	} else if t.Envelope != nil {
		b.WriteString("\n[추천 매물]\n조건에 맞는 매물이 없습니다.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
