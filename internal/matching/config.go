package matching

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// Band is an inclusive [Min, Max] range.
type Band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (b Band) Contains(v float64) bool { return v >= b.Min && v <= b.Max }

// StepTier awards Points when the measured value is at least Threshold.
// Tiers are evaluated in order; the first match wins. An empty Reason means
// the tier is not notable enough to mention.
type StepTier struct {
	Threshold float64 `json:"threshold"`
	Points    float64 `json:"points"`
	Reason    string  `json:"reason,omitempty"`
}

// CommuteRoute maps a work-location keyword to an estimated one-way commute.
type CommuteRoute struct {
	Keyword string `json:"keyword"`
	Minutes int    `json:"minutes"`
}

// Weights caps each sub-score. They sum to 100 by default.
type Weights struct {
	Price    float64 `json:"price"`
	Market   float64 `json:"market"`
	Location float64 `json:"location"`
	Purpose  float64 `json:"purpose"`
}

func (w Weights) Total() float64 { return w.Price + w.Market + w.Location + w.Purpose }

// Policy is the full scoring configuration. It is read once at start-up
// and never mutated.
type Policy struct {
	Weights Weights `json:"weights"`

	// Target utilization of the budget ceiling per purpose.
	ResidenceBand Band    `json:"residence_band"`
	GapBand       Band    `json:"gap_band"`
	UnderPenalty  float64 `json:"under_penalty"`
	OverPenalty   float64 `json:"over_penalty"`

	MarketTiers   []StepTier `json:"market_tiers"`
	MarketDefault StepTier   `json:"market_default"`

	PremiumAreas    []string `json:"premium_areas"`
	SecondaryAreas  []string `json:"secondary_areas"`
	PremiumPoints   float64  `json:"premium_points"`
	SecondaryPoints float64  `json:"secondary_points"`
	BasePoints      float64  `json:"base_points"`
	CommuteBonus    float64  `json:"commute_bonus"`

	LeaseRateTiers   []StepTier `json:"lease_rate_tiers"`
	LeaseRateDefault StepTier   `json:"lease_rate_default"`

	FamilyPyeong     Band    `json:"family_pyeong"`
	ComfortPyeong    Band    `json:"comfort_pyeong"`
	FamilyPoints     float64 `json:"family_points"`
	ComfortPoints    float64 `json:"comfort_points"`
	OtherAreaPoints  float64 `json:"other_area_points"`
	Households       Band    `json:"households"`
	HouseholdPoints  float64 `json:"household_points"`
	UnknownHousehold float64 `json:"unknown_household_points"`
	OtherHousehold   float64 `json:"other_household_points"`

	CommuteRoutes    []CommuteRoute `json:"commute_routes"`
	NoWorkCommute    int            `json:"no_work_commute_minutes"`
	UnmatchedCommute int            `json:"unmatched_commute_minutes"`

	MaxReasons int `json:"max_reasons"`
}

// DefaultPolicy returns the production scoring rules.
func DefaultPolicy() Policy {
	return Policy{
		Weights: Weights{Price: 35, Market: 30, Location: 20, Purpose: 15},

		ResidenceBand: Band{Min: 0.80, Max: 0.95},
		GapBand:       Band{Min: 0.70, Max: 0.95},
		UnderPenalty:  0.5,
		OverPenalty:   0.6,

		MarketTiers: []StepTier{
			{Threshold: 95, Points: 30, Reason: "전고점 대비 높은 회복률"},
			{Threshold: 85, Points: 25, Reason: "전고점 대비 양호한 회복률"},
			{Threshold: 75, Points: 20},
			{Threshold: 65, Points: 15},
		},
		MarketDefault: StepTier{Points: 10},

		PremiumAreas:    []string{"강남구", "서초구", "송파구", "강동구"},
		SecondaryAreas:  []string{"마포구", "용산구", "성동구", "광진구"},
		PremiumPoints:   17,
		SecondaryPoints: 13,
		BasePoints:      8,
		CommuteBonus:    3,

		LeaseRateTiers: []StepTier{
			{Threshold: 80, Points: 15, Reason: "높은 전세가율로 갭투자 유리"},
			{Threshold: 70, Points: 12, Reason: "양호한 전세가율"},
			{Threshold: 60, Points: 9},
		},
		LeaseRateDefault: StepTier{Points: 6},

		FamilyPyeong:     Band{Min: 25, Max: 34},
		ComfortPyeong:    Band{Min: 20, Max: 45},
		FamilyPoints:     10,
		ComfortPoints:    7,
		OtherAreaPoints:  4,
		Households:       Band{Min: 300, Max: 3000},
		HouseholdPoints:  5,
		UnknownHousehold: 2.5,
		OtherHousehold:   2,

		CommuteRoutes: []CommuteRoute{
			{Keyword: "강남", Minutes: 25},
			{Keyword: "여의도", Minutes: 35},
			{Keyword: "을지로", Minutes: 40},
			{Keyword: "종로", Minutes: 45},
			{Keyword: "강북", Minutes: 50},
		},
		NoWorkCommute:    30,
		UnmatchedCommute: 35,

		MaxReasons: 5,
	}
}

func (p Policy) Validate() error {
	if p.Weights.Price < 0 || p.Weights.Market < 0 || p.Weights.Location < 0 || p.Weights.Purpose < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if p.Weights.Total() <= 0 {
		return fmt.Errorf("scoring weights must sum to a positive value")
	}
	for name, b := range map[string]Band{"residence_band": p.ResidenceBand, "gap_band": p.GapBand} {
		if b.Min <= 0 || b.Max >= 1 || b.Min > b.Max {
			return fmt.Errorf("%s must satisfy 0 < min <= max < 1, got [%g, %g]", name, b.Min, b.Max)
		}
	}
	if err := descending("market_tiers", p.MarketTiers); err != nil {
		return err
	}
	if err := descending("lease_rate_tiers", p.LeaseRateTiers); err != nil {
		return err
	}
	return nil
}

func descending(name string, tiers []StepTier) error {
	for i := 1; i < len(tiers); i++ {
		if tiers[i].Threshold >= tiers[i-1].Threshold {
			return fmt.Errorf("%s thresholds must be strictly descending", name)
		}
	}
	return nil
}

// LoadPolicyFromFile overlays a JSON file on DefaultPolicy. On read or parse
// errors the defaults are returned together with the error.
func LoadPolicyFromFile(path string) (Policy, error) {
	p := DefaultPolicy()
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read scoring policy: %w", err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return DefaultPolicy(), fmt.Errorf("unmarshal scoring policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return DefaultPolicy(), fmt.Errorf("invalid scoring policy: %w", err)
	}
	return p, nil
}
