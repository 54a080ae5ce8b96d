// Package budget turns a financial profile into an affordability envelope.
//
// Qualification uses a stressed rate (base + add-on) while the monthly
// payment shown to the user uses the base rate. Both are intentional and
// must stay distinct. The envelope does not depend on purpose; purpose only
// changes how the envelope is applied when filtering candidates.
package budget

import (
	"math"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
)

type Calculator struct {
	policy Policy
}

func NewCalculator(p Policy) *Calculator {
	return &Calculator{policy: p}
}

func (c *Calculator) Policy() Policy { return c.policy }

// Compute never fails. Non-positive salary or malformed inputs produce a
// zero-capacity envelope rather than an error.
func (c *Calculator) Compute(profile domain.FinancialProfile) domain.AffordabilityEnvelope {
	p := c.policy
	salary := domain.Sanitize(profile.AnnualSalary)
	cash := domain.Sanitize(profile.AvailableCash)
	debt := domain.Sanitize(profile.AnnualDebtService)
	n := p.TermYears * 12

	// DSR capacity at the stress rate.
	annualCapacity := math.Max(salary*p.DSRLimit-debt, 0)
	monthlyCapacity := annualCapacity / 12
	loanByDSR := PresentValue(monthlyCapacity, p.StressRate()/12, n)

	// LTV capacity: cash is the (1-LTV) share of the purchase.
	var loanByLTV float64
	if p.LTVRate < 1 {
		loanByLTV = cash / (1 - p.LTVRate) * p.LTVRate
	}

	maxLoan := math.Max(math.Min(loanByDSR, loanByLTV), 0)
	maxBudget := cash + maxLoan
	monthly := Payment(maxLoan, p.BaseRate/12, n)

	env := domain.AffordabilityEnvelope{
		MaxLoanAmount:  maxLoan,
		MaxBudget:      maxBudget,
		MonthlyPayment: monthly,
		InterestRate:   p.BaseRate,
		StressRate:     p.StressRate(),
		TermYears:      p.TermYears,
	}
	if salary > 0 {
		env.DSRRatio = monthly * 12 / salary
	}
	if maxBudget > 0 {
		env.LTVRatio = maxLoan / maxBudget
	}
	return env
}

// PresentValue is the principal a fixed monthly payment amortizes over n
// months at monthly rate r.
func PresentValue(payment, r float64, n int) float64 {
	if payment <= 0 || n <= 0 {
		return 0
	}
	if r == 0 {
		return payment * float64(n)
	}
	return payment * (1 - math.Pow(1+r, -float64(n))) / r
}

// Payment is the fixed monthly payment that amortizes principal over n
// months at monthly rate r.
func Payment(principal, r float64, n int) float64 {
	if principal <= 0 || n <= 0 {
		return 0
	}
	if r == 0 {
		return principal / float64(n)
	}
	f := math.Pow(1+r, float64(n))
	return principal * r * f / (f - 1)
}

// GapInvestmentFeasible reports whether the funds needed for a leveraged
// purchase (gap plus closing costs on the sale price) fit within cash plus
// the loan ceiling.
func (c *Calculator) GapInvestmentFeasible(salePrice, leasePrice, cash, maxLoan float64) bool {
	gap := domain.Sanitize(salePrice) - domain.Sanitize(leasePrice)
	required := gap + domain.Sanitize(salePrice)*c.policy.ClosingCostRate
	return required <= domain.Sanitize(cash)+domain.Sanitize(maxLoan)
}
