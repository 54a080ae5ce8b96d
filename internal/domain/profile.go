package domain

import (
	"math"
	"strings"
)

// ProfilePatch is a partial profile, typically extracted from one chat
// message. Nil fields are unknown.
type ProfilePatch struct {
	Purpose           *Purpose `json:"purpose,omitempty"`
	AnnualSalary      *float64 `json:"salary,omitempty"`
	AvailableCash     *float64 `json:"cash,omitempty"`
	AnnualDebtService *float64 `json:"debt,omitempty"`
	WorkLocation      *string  `json:"work_location,omitempty"`
	PreferredArea     *string  `json:"preferred_area,omitempty"`
}

func (p ProfilePatch) Empty() bool {
	return p.Purpose == nil && p.AnnualSalary == nil && p.AvailableCash == nil &&
		p.AnnualDebtService == nil && p.WorkLocation == nil && p.PreferredArea == nil
}

// Merge applies patch on top of prev. Known patch values win; nil, blank,
// non-finite or out-of-range values are treated as absent and never erase
// what prev already holds.
func Merge(prev ClientProfile, patch ProfilePatch) ClientProfile {
	out := prev
	if patch.Purpose != nil && patch.Purpose.Valid() {
		out.Purpose = *patch.Purpose
	}
	if v, ok := positive(patch.AnnualSalary); ok {
		out.AnnualSalary = v
	}
	if v, ok := nonNegative(patch.AvailableCash); ok {
		out.AvailableCash = v
	}
	if v, ok := nonNegative(patch.AnnualDebtService); ok {
		out.AnnualDebtService = v
	}
	if v, ok := nonBlank(patch.WorkLocation); ok {
		out.WorkLocation = v
	}
	if v, ok := nonBlank(patch.PreferredArea); ok {
		out.PreferredArea = v
	}
	return out
}

func positive(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
		return 0, false
	}
	return *v, true
}

func nonNegative(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return 0, false
	}
	return *v, true
}

func nonBlank(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	t := strings.TrimSpace(*s)
	return t, t != ""
}
