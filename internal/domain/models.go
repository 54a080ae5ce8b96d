package domain

import (
	"math"
	"strings"
	"time"
)

// Monetary fields across the domain are expressed in 만원 (10,000 KRW) units.
// Conversions to won or display strings happen in the money package only.

type Purpose string

const (
	PurposeResidence     Purpose = "residence"
	PurposeGapInvestment Purpose = "gap_investment"
)

func (p Purpose) Valid() bool {
	return p == PurposeResidence || p == PurposeGapInvestment
}

// Label returns the Korean label used in user-facing text.
func (p Purpose) Label() string {
	if p == PurposeGapInvestment {
		return "갭투자"
	}
	return "실거주"
}

// FinancialProfile is the input to the budget calculator.
type FinancialProfile struct {
	Purpose           Purpose `json:"purpose"`
	AnnualSalary      float64 `json:"annual_salary"`
	AvailableCash     float64 `json:"available_cash"`
	AnnualDebtService float64 `json:"annual_debt_service"`
}

// ClientProfile is everything known about a user: the financial inputs plus
// location and size preferences used by filtering and scoring.
type ClientProfile struct {
	FinancialProfile
	WorkLocation  string  `json:"work_location,omitempty"`
	PreferredArea string  `json:"preferred_area,omitempty"`
	MinPyeong     float64 `json:"min_pyeong,omitempty"`
	MaxPyeong     float64 `json:"max_pyeong,omitempty"`
}

// Ready reports whether enough is known to compute a budget and recommend.
func (p ClientProfile) Ready() bool {
	return p.Purpose.Valid() && p.AnnualSalary > 0 && p.AvailableCash > 0
}

type AffordabilityEnvelope struct {
	MaxLoanAmount  float64 `json:"max_loan_amount"`
	MaxBudget      float64 `json:"max_budget"`
	DSRRatio       float64 `json:"dsr_ratio"`
	LTVRatio       float64 `json:"ltv_ratio"`
	MonthlyPayment float64 `json:"monthly_payment"`
	InterestRate   float64 `json:"interest_rate"`
	StressRate     float64 `json:"stress_rate"`
	TermYears      int     `json:"term_years"`
}

const (
	TransactionSale  = "sale"
	TransactionLease = "lease"
)

// SquareMetersPerPyeong is the area of one 평 in m².
const SquareMetersPerPyeong = 3.305785

const pyeongPerSquareMeter = 1 / SquareMetersPerPyeong

type HousingCandidate struct {
	ID              int64    `json:"id"`
	ComplexNo       int64    `json:"complex_no"`
	ComplexName     string   `json:"complex_name"`
	DongName        string   `json:"dong_name,omitempty"`
	Sigungu         string   `json:"sigungu"`
	SalePrice       float64  `json:"sale_price"`
	LeasePrice      *float64 `json:"lease_price,omitempty"`
	Gap             *float64 `json:"gap,omitempty"`
	LeaseRate       float64  `json:"lease_rate"`
	ExclusiveArea   float64  `json:"exclusive_area"`
	Pyeong          float64  `json:"pyeong"`
	ChangeFromPeak  float64  `json:"change_from_peak"`
	HighestPrice    float64  `json:"highest_price,omitempty"`
	TotalHouseholds int      `json:"total_households,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
}

// FloorPyeong returns the floor area in 평, deriving it from the exclusive
// area when the pyeong column is missing. Malformed values read as 0.
func (c HousingCandidate) FloorPyeong() float64 {
	if v := Sanitize(c.Pyeong); v > 0 {
		return v
	}
	return Sanitize(c.ExclusiveArea) * pyeongPerSquareMeter
}

// GapAmount returns the gap and whether it is known.
func (c HousingCandidate) GapAmount() (float64, bool) {
	if c.Gap != nil && !math.IsNaN(*c.Gap) && !math.IsInf(*c.Gap, 0) {
		return *c.Gap, true
	}
	if c.LeasePrice != nil && c.SalePrice > 0 {
		lease := Sanitize(*c.LeasePrice)
		if lease > 0 {
			return Sanitize(c.SalePrice) - lease, true
		}
	}
	return 0, false
}

// MatchesArea reports a case-insensitive substring match on the
// administrative area. An empty needle matches everything.
func (c HousingCandidate) MatchesArea(area string) bool {
	area = strings.TrimSpace(area)
	if area == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Sigungu), strings.ToLower(area))
}

// Sanitize maps NaN, infinities and negative values to 0.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

type Tier string

const (
	TierFree  Tier = "free"
	TierGated Tier = "gated"
)

type ScoreBreakdown struct {
	Price    float64 `json:"price"`
	Market   float64 `json:"market"`
	Location float64 `json:"location"`
	Purpose  float64 `json:"purpose"`
}

func (b ScoreBreakdown) Total() float64 {
	return b.Price + b.Market + b.Location + b.Purpose
}

type ScoredRecommendation struct {
	Candidate      HousingCandidate `json:"candidate"`
	Score          float64          `json:"score"`
	Breakdown      ScoreBreakdown   `json:"breakdown"`
	Reasons        []ScoreReason    `json:"reasons"`
	CommuteMinutes int              `json:"commute_minutes"`
	Rank           int              `json:"rank"`
	Tier           Tier             `json:"tier"`
	Description    string           `json:"description,omitempty"`
	Warnings       []string         `json:"warnings,omitempty"`
}

type ScoreReason struct {
	Type    string  `json:"type"`
	Message string  `json:"message"`
	Impact  float64 `json:"impact"`
}

// CandidateQuery is what the candidate source needs to pre-filter inventory.
type CandidateQuery struct {
	Purpose       Purpose
	BudgetCeiling float64
	Area          string
	MinPyeong     float64
	MaxPyeong     float64
	Limit         int
}

// Apartment is a complex with its price rows, the unit of inventory import.
type Apartment struct {
	ComplexNo       int64      `json:"complex_no"`
	ComplexName     string     `json:"complex_name"`
	DongName        string     `json:"dong_name"`
	Sigungu         string     `json:"sigungu"`
	DetailAddress   string     `json:"detail_address"`
	TotalHouseholds int        `json:"total_households"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	Prices          []PriceRow `json:"prices"`
}

type PriceRow struct {
	ID              int64    `json:"id,omitempty"`
	TransactionType string   `json:"transaction_type"`
	ExclusiveArea   float64  `json:"exclusive_area"`
	Pyeong          float64  `json:"pyeong"`
	SalePrice       *float64 `json:"sale_price,omitempty"`
	LeasePrice      *float64 `json:"lease_price,omitempty"`
	Gap             *float64 `json:"gap,omitempty"`
	LeaseRate       *float64 `json:"lease_rate,omitempty"`
	HighestPrice    *float64 `json:"highest_price,omitempty"`
	ChangeFromPeak  *float64 `json:"change_from_peak,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Session struct {
	ID        string                 `json:"session_id"`
	Profile   ClientProfile          `json:"profile"`
	Envelope  *AffordabilityEnvelope `json:"envelope,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

type Message struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Metadata  MessageMetadata `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
}

type MessageMetadata struct {
	Envelope        *AffordabilityEnvelope `json:"envelope,omitempty"`
	Recommendations []ScoredRecommendation `json:"recommendations,omitempty"`
}
