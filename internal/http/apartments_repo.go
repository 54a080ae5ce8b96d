package httpapi

import (
	"context"
	"strconv"
	"strings"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
	"github.com/denisok6893-rgb/apartment-advisor/internal/money"
	"github.com/denisok6893-rgb/apartment-advisor/internal/storage"
)

// ListParams are the raw listing query parameters.
type ListParams struct {
	Limit    int
	Offset   int
	Purpose  string
	Sigungu  string
	MinPrice string
	MaxPrice string
	Sort     string
}

type ApartmentSummary struct {
	ID             int64    `json:"id"`
	ComplexNo      int64    `json:"complex_no"`
	ComplexName    string   `json:"complex_name"`
	Sigungu        string   `json:"sigungu"`
	SalePrice      float64  `json:"sale_price"`
	SaleDisplay    string   `json:"sale_display"`
	LeasePrice     *float64 `json:"lease_price,omitempty"`
	Gap            *float64 `json:"gap,omitempty"`
	LeaseRate      float64  `json:"lease_rate"`
	Pyeong         float64  `json:"pyeong"`
	ChangeFromPeak float64  `json:"change_from_peak"`
}

type ApartmentRepo interface {
	List(ctx context.Context, p ListParams) ([]ApartmentSummary, int, error)
	Get(ctx context.Context, complexNo int64) (domain.Apartment, error)
	Upsert(ctx context.Context, items []domain.Apartment) (int, error)
}

// StoreApartmentsRepo serves the listing endpoints from the SQL store.
type StoreApartmentsRepo struct {
	Store *storage.Store
}

var sorts = map[string]bool{"": true, "price_asc": true, "price_desc": true, "recovery_desc": true, "gap_asc": true}

func (r *StoreApartmentsRepo) List(ctx context.Context, p ListParams) ([]ApartmentSummary, int, error) {
	minPrice, err := parsePrice("min_price", p.MinPrice)
	if err != nil {
		return nil, 0, err
	}
	maxPrice, err := parsePrice("max_price", p.MaxPrice)
	if err != nil {
		return nil, 0, err
	}
	purpose := domain.Purpose(p.Purpose)
	if p.Purpose != "" && !purpose.Valid() {
		return nil, 0, domain.Invalid("purpose must be residence or gap_investment")
	}
	if !sorts[p.Sort] {
		return nil, 0, domain.Invalid("unknown sort %q", p.Sort)
	}

	cands, total, err := r.Store.SearchApartments(ctx, storage.ApartmentFilter{
		Purpose:  purpose,
		Sigungu:  p.Sigungu,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     p.Sort,
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]ApartmentSummary, 0, len(cands))
	for _, c := range cands {
		out = append(out, ApartmentSummary{
			ID:             c.ID,
			ComplexNo:      c.ComplexNo,
			ComplexName:    c.ComplexName,
			Sigungu:        c.Sigungu,
			SalePrice:      c.SalePrice,
			SaleDisplay:    money.FormatManwon(c.SalePrice),
			LeasePrice:     c.LeasePrice,
			Gap:            c.Gap,
			LeaseRate:      c.LeaseRate,
			Pyeong:         c.FloorPyeong(),
			ChangeFromPeak: c.ChangeFromPeak,
		})
	}
	return out, total, nil
}

func (r *StoreApartmentsRepo) Get(ctx context.Context, complexNo int64) (domain.Apartment, error) {
	return r.Store.GetApartment(ctx, complexNo)
}

func (r *StoreApartmentsRepo) Upsert(ctx context.Context, items []domain.Apartment) (int, error) {
	return r.Store.UpsertApartments(ctx, items)
}

func parsePrice(name, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, domain.Invalid("%s must be a non-negative number", name)
	}
	return v, nil
}
