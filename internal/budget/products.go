package budget

import (
	"fmt"
	"strings"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
	"github.com/denisok6893-rgb/apartment-advisor/internal/money"
)

type LoanProduct struct {
	Name         string   `json:"name"`
	InterestRate float64  `json:"interest_rate"`
	MaxAmount    float64  `json:"max_amount"`
	Features     []string `json:"features"`
	Eligibility  string   `json:"eligibility"`
}

// LoanProducts lists the mortgage products that can carry loanAmount. The
// subsidised policy mortgage is only offered for residence purchases under
// the policy cap.
func (c *Calculator) LoanProducts(loanAmount float64, purpose domain.Purpose) []LoanProduct {
	loanAmount = domain.Sanitize(loanAmount)
	p := c.policy

	var out []LoanProduct
	if purpose == domain.PurposeResidence && p.PolicyLoanCap > 0 && loanAmount <= p.PolicyLoanCap {
		out = append(out, LoanProduct{
			Name:         "보금자리론",
			InterestRate: money.Percent(p.PolicyLoanRate),
			MaxAmount:    loanAmount,
			Features:     []string{"고정금리", "장기상환", "중도상환수수료 없음"},
			Eligibility:  "무주택자, 연소득 7천만원 이하",
		})
	}
	out = append(out, LoanProduct{
		Name:         "일반 주택담보대출",
		InterestRate: money.Percent(p.BaseRate),
		MaxAmount:    loanAmount,
		Features:     []string{"변동금리", "금리우대 가능"},
		Eligibility:  "소득증빙 가능자",
	})
	return out
}

// Explain renders a short Korean summary of an envelope for the reply text.
func (c *Calculator) Explain(profile domain.FinancialProfile, env domain.AffordabilityEnvelope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "연봉 %s, 보유현금 %s을 기준으로 계산한 결과입니다.\n\n",
		money.FormatManwon(profile.AnnualSalary), money.FormatManwon(profile.AvailableCash))
	fmt.Fprintf(&b, "DSR %.0f%% 기준(스트레스 금리 %.1f%%)으로 최대 %s까지 대출이 가능하며, 총 %s까지 구매하실 수 있습니다.\n",
		c.policy.DSRLimit*100, money.Percent(env.StressRate), money.FormatManwon(env.MaxLoanAmount), money.FormatManwon(env.MaxBudget))
	fmt.Fprintf(&b, "예상 월 상환액은 %s (연 %.1f%%, %d년 원리금균등)입니다.\n\n",
		money.FormatManwon(env.MonthlyPayment), money.Percent(env.InterestRate), env.TermYears)

	if profile.Purpose == domain.PurposeGapInvestment {
		b.WriteString("갭투자의 경우 전세가를 제외한 갭 금액만 준비하시면 됩니다.")
	} else {
		b.WriteString("실거주용으로 안정적인 대출 조건을 적용했습니다.")
	}
	return b.String()
}
