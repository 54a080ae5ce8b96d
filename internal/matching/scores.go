package matching

import (
	"math"
	"strings"
)

// Sub-scores are pure functions of a narrow input so each can be tested in
// isolation. Each returns the points awarded and a reason when notable.

const (
	ReasonPrice    = "price"
	ReasonMarket   = "market"
	ReasonLocation = "location"
	ReasonCommute  = "commute"
	ReasonPurpose  = "purpose"
)

// PriceScore rates how a price uses the budget ceiling. utilization is
// price / ceiling. Inside band scores max. Below the band decays linearly to
// (1-under)*max at zero; above the band decays to (1-over)*max at the
// ceiling. Anything over the ceiling scores 0.
func PriceScore(utilization float64, band Band, max, under, over float64) (float64, string) {
	u := utilization
	if math.IsNaN(u) || u < 0 {
		u = 0
	}
	switch {
	case u > 1:
		return 0, ""
	case u < band.Min:
		points := max * (1 - under*(band.Min-u)/band.Min)
		if u <= 0.5 {
			return points, "예산 대비 매우 저렴한 가격"
		}
		return points, "예산 대비 여유 있는 가격"
	case u <= band.Max:
		return max, "예산 대비 적정한 가격대"
	default:
		return max * (1 - over*(u-band.Max)/(1-band.Max)), "예산 한도에 근접한 가격"
	}
}

// StepScore returns the first tier whose threshold value meets, or def.
func StepScore(value float64, tiers []StepTier, def StepTier) (float64, string) {
	if math.IsNaN(value) {
		return def.Points, def.Reason
	}
	for _, t := range tiers {
		if value >= t.Threshold {
			return t.Points, t.Reason
		}
	}
	return def.Points, def.Reason
}

// LocationScore rates an administrative area against the premium and
// secondary allow-lists.
func LocationScore(sigungu string, p Policy) (float64, string) {
	s := strings.TrimSpace(sigungu)
	for _, a := range p.PremiumAreas {
		if s == a {
			return p.PremiumPoints, "프리미엄 입지"
		}
	}
	for _, a := range p.SecondaryAreas {
		if s == a {
			return p.SecondaryPoints, "우수한 입지"
		}
	}
	return p.BasePoints, ""
}

// CommuteOverlap reports whether the candidate's area and the declared work
// location name the same place once administrative suffixes are removed.
func CommuteOverlap(sigungu, workLocation string) bool {
	area := stripAdminSuffix(sigungu)
	work := stripAdminSuffix(workLocation)
	if area == "" || work == "" {
		return false
	}
	return strings.Contains(work, area) || strings.Contains(area, work)
}

func stripAdminSuffix(s string) string {
	s = strings.TrimSpace(s)
	for _, suffix := range []string{"구", "시", "군"} {
		if t := strings.TrimSuffix(s, suffix); t != s && t != "" {
			return t
		}
	}
	return s
}

// ResidenceScore rewards family-sized floor areas and mid-sized complexes.
// households <= 0 means unknown.
func ResidenceScore(pyeong float64, households int, p Policy) (float64, string) {
	var points float64
	var reason string
	switch {
	case p.FamilyPyeong.Contains(pyeong):
		points, reason = p.FamilyPoints, "가족 거주에 적합한 면적"
	case p.ComfortPyeong.Contains(pyeong):
		points = p.ComfortPoints
	default:
		points = p.OtherAreaPoints
	}

	switch {
	case households <= 0:
		points += p.UnknownHousehold
	case p.Households.Contains(float64(households)):
		points += p.HouseholdPoints
		if reason == "" {
			reason = "적정 규모의 단지"
		}
	default:
		points += p.OtherHousehold
	}
	return points, reason
}

// EstimateCommute is a coarse lookup on the work location, not a routing
// computation.
func EstimateCommute(workLocation string, p Policy) int {
	w := strings.TrimSpace(workLocation)
	if w == "" {
		return p.NoWorkCommute
	}
	for _, r := range p.CommuteRoutes {
		if strings.Contains(w, r.Keyword) {
			return r.Minutes
		}
	}
	return p.UnmatchedCommute
}
