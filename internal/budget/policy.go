package budget

import "fmt"

// Policy holds the lending rules the calculator applies. Rates are annual
// fractions (0.045 = 4.5%).
type Policy struct {
	DSRLimit        float64 `koanf:"dsr_limit" json:"dsr_limit"`
	LTVRate         float64 `koanf:"ltv_rate" json:"ltv_rate"`
	BaseRate        float64 `koanf:"base_rate" json:"base_rate"`
	StressAddOn     float64 `koanf:"stress_add_on" json:"stress_add_on"`
	TermYears       int     `koanf:"term_years" json:"term_years"`
	ClosingCostRate float64 `koanf:"closing_cost_rate" json:"closing_cost_rate"`

	// PolicyLoanCap is the ceiling (만원) for the subsidised residence mortgage.
	PolicyLoanCap  float64 `koanf:"policy_loan_cap" json:"policy_loan_cap"`
	PolicyLoanRate float64 `koanf:"policy_loan_rate" json:"policy_loan_rate"`
}

// DefaultPolicy returns first-home-buyer rules: DSR 40%, LTV 80%, 4.5% over
// 30 years with a 1.5%p stress add-on.
func DefaultPolicy() Policy {
	return Policy{
		DSRLimit:        0.40,
		LTVRate:         0.80,
		BaseRate:        0.045,
		StressAddOn:     0.015,
		TermYears:       30,
		ClosingCostRate: 0.03,
		PolicyLoanCap:   50000,
		PolicyLoanRate:  0.032,
	}
}

// StressRate is the annual rate used for qualification.
func (p Policy) StressRate() float64 {
	return p.BaseRate + p.StressAddOn
}

func (p Policy) Validate() error {
	if p.DSRLimit <= 0 || p.DSRLimit > 1 {
		return fmt.Errorf("budget.dsr_limit must be in (0, 1], got %f", p.DSRLimit)
	}
	if p.LTVRate < 0 || p.LTVRate >= 1 {
		return fmt.Errorf("budget.ltv_rate must be in [0, 1), got %f", p.LTVRate)
	}
	if p.BaseRate < 0 {
		return fmt.Errorf("budget.base_rate must be non-negative, got %f", p.BaseRate)
	}
	if p.StressAddOn < 0 {
		return fmt.Errorf("budget.stress_add_on must be non-negative, got %f", p.StressAddOn)
	}
	if p.TermYears < 1 {
		return fmt.Errorf("budget.term_years must be positive, got %d", p.TermYears)
	}
	if p.ClosingCostRate < 0 || p.ClosingCostRate >= 1 {
		return fmt.Errorf("budget.closing_cost_rate must be in [0, 1), got %f", p.ClosingCostRate)
	}
	return nil
}
