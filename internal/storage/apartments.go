package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
)

const (
	defaultCandidateLimit = 50
	maxCandidateLimit     = 500
)

// candidateColumns select a sale row joined with its complex, in the order
// scanCandidate expects.
const candidateColumns = `
p.id, a.complex_no, a.complex_name, a.dong_name, a.sigungu,
p.sale_price, p.lease_price, p.gap, p.lease_rate, p.exclusive_area, p.pyeong,
p.change_from_peak, p.highest_price, a.total_households, a.latitude, a.longitude`

const candidateFrom = `
FROM apartment_prices p
JOIN apartments a ON a.complex_no = p.complex_no`

// gapExpr is the known gap of a row, NULL when neither gap nor a positive
// lease price is recorded.
const gapExpr = `COALESCE(p.gap, CASE WHEN p.lease_price > 0 THEN p.sale_price - p.lease_price END)`

// floorPyeongExpr mirrors HousingCandidate.FloorPyeong: the pyeong column,
// else the exclusive area converted at the bound m² per 평.
const floorPyeongExpr = `COALESCE(NULLIF(p.pyeong, 0), p.exclusive_area / ?)`

// QueryCandidates returns sale-type rows within the purpose budget measure
// and the optional area and floor-area bounds. Rows without a sale price
// (residence) or without a known gap (gap investment) are not returned.
func (s *Store) QueryCandidates(ctx context.Context, q domain.CandidateQuery) ([]domain.HousingCandidate, error) {
	w := &whereBuilder{}
	w.add("p.transaction_type = ?", domain.TransactionSale)
	if q.Purpose == domain.PurposeGapInvestment {
		w.add(gapExpr+" <= ?", q.BudgetCeiling)
	} else {
		w.add("p.sale_price IS NOT NULL").add("p.sale_price <= ?", q.BudgetCeiling)
	}
	w.addAreaFilter("a.sigungu", q.Area)
	if q.MinPyeong > 0 {
		w.add(floorPyeongExpr+" >= ?", domain.SquareMetersPerPyeong, q.MinPyeong)
	}
	if q.MaxPyeong > 0 {
		w.add(floorPyeongExpr+" <= ?", domain.SquareMetersPerPyeong, q.MaxPyeong)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	if limit > maxCandidateLimit {
		limit = maxCandidateLimit
	}

	query := "SELECT " + candidateColumns + candidateFrom + "\n" + w.sql() + "\nORDER BY p.id\nLIMIT ?"
	rows, err := s.query(ctx, s.db, query, append(w.args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	out := make([]domain.HousingCandidate, 0, limit)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ApartmentFilter drives the listing endpoint. Prices bound the sale price.
type ApartmentFilter struct {
	Purpose  domain.Purpose
	Sigungu  string
	MinPrice float64
	MaxPrice float64
	Sort     string
	Limit    int
	Offset   int
}

// SearchApartments lists sale rows page by page and returns the total match
// count for the same filter.
func (s *Store) SearchApartments(ctx context.Context, f ApartmentFilter) ([]domain.HousingCandidate, int, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	w := &whereBuilder{}
	w.add("p.transaction_type = ?", domain.TransactionSale)
	w.addAreaFilter("a.sigungu", f.Sigungu)
	if f.MinPrice > 0 {
		w.add("p.sale_price >= ?", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		w.add("p.sale_price <= ?", f.MaxPrice)
	}
	if f.Purpose == domain.PurposeGapInvestment {
		w.add(gapExpr + " IS NOT NULL")
	}

	orderSQL := "ORDER BY p.id"
	switch f.Sort {
	case "price_asc":
		orderSQL = "ORDER BY p.sale_price ASC, p.id"
	case "price_desc":
		orderSQL = "ORDER BY p.sale_price DESC, p.id"
	case "recovery_desc":
		orderSQL = "ORDER BY p.change_from_peak DESC, p.id"
	case "gap_asc":
		orderSQL = "ORDER BY " + gapExpr + " ASC, p.id"
	}

	var total int
	if err := s.queryRow(ctx, s.db, "SELECT COUNT(*)"+candidateFrom+"\n"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count apartments: %w", err)
	}

	query := "SELECT " + candidateColumns + candidateFrom + "\n" + w.sql() + "\n" + orderSQL + "\nLIMIT ? OFFSET ?"
	rows, err := s.query(ctx, s.db, query, append(append([]any{}, w.args...), f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("search apartments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.HousingCandidate, 0, f.Limit)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan apartment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanCandidate(rows *sql.Rows) (domain.HousingCandidate, error) {
	var (
		c                                  domain.HousingCandidate
		sale, lease, gap, leaseRate        sql.NullFloat64
		changeFromPeak, highest, lat, long sql.NullFloat64
	)
	err := rows.Scan(
		&c.ID, &c.ComplexNo, &c.ComplexName, &c.DongName, &c.Sigungu,
		&sale, &lease, &gap, &leaseRate, &c.ExclusiveArea, &c.Pyeong,
		&changeFromPeak, &highest, &c.TotalHouseholds, &lat, &long,
	)
	if err != nil {
		return c, err
	}
	c.SalePrice = sale.Float64
	c.LeasePrice = nullable(lease)
	c.Gap = nullable(gap)
	c.LeaseRate = leaseRate.Float64
	c.ChangeFromPeak = changeFromPeak.Float64
	c.HighestPrice = highest.Float64
	c.Latitude = nullable(lat)
	c.Longitude = nullable(long)
	return c, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// GetApartment returns a complex with all of its price rows.
func (s *Store) GetApartment(ctx context.Context, complexNo int64) (domain.Apartment, error) {
	var (
		a        domain.Apartment
		lat, lng sql.NullFloat64
	)
	err := s.queryRow(ctx, s.db, `
SELECT complex_no, complex_name, dong_name, sigungu, detail_address, total_households, latitude, longitude
FROM apartments WHERE complex_no = ?`, complexNo).Scan(
		&a.ComplexNo, &a.ComplexName, &a.DongName, &a.Sigungu, &a.DetailAddress, &a.TotalHouseholds, &lat, &lng,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Apartment{}, fmt.Errorf("apartment %d: %w", complexNo, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Apartment{}, fmt.Errorf("get apartment: %w", err)
	}
	a.Latitude = nullable(lat)
	a.Longitude = nullable(lng)

	rows, err := s.query(ctx, s.db, `
SELECT id, transaction_type, exclusive_area, pyeong, sale_price, lease_price, gap, lease_rate, highest_price, change_from_peak
FROM apartment_prices WHERE complex_no = ? ORDER BY id`, complexNo)
	if err != nil {
		return domain.Apartment{}, fmt.Errorf("get apartment prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p                                         domain.PriceRow
			sale, lease, gap, rate, highest, fromPeak sql.NullFloat64
		)
		if err := rows.Scan(&p.ID, &p.TransactionType, &p.ExclusiveArea, &p.Pyeong,
			&sale, &lease, &gap, &rate, &highest, &fromPeak); err != nil {
			return domain.Apartment{}, fmt.Errorf("scan price row: %w", err)
		}
		p.SalePrice, p.LeasePrice, p.Gap = nullable(sale), nullable(lease), nullable(gap)
		p.LeaseRate, p.HighestPrice, p.ChangeFromPeak = nullable(rate), nullable(highest), nullable(fromPeak)
		a.Prices = append(a.Prices, p)
	}
	return a, rows.Err()
}

// UpsertApartments inserts or updates complexes. Price rows of an upserted
// complex are replaced wholesale.
func (s *Store) UpsertApartments(ctx context.Context, items []domain.Apartment) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, a := range items {
		if a.ComplexNo <= 0 || a.ComplexName == "" {
			return 0, domain.Invalid("apartment requires complex_no and complex_name")
		}
		if _, err := s.exec(ctx, tx, `
INSERT INTO apartments
(complex_no, complex_name, dong_name, sigungu, detail_address, total_households, latitude, longitude)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (complex_no) DO UPDATE SET
  complex_name = excluded.complex_name,
  dong_name = excluded.dong_name,
  sigungu = excluded.sigungu,
  detail_address = excluded.detail_address,
  total_households = excluded.total_households,
  latitude = excluded.latitude,
  longitude = excluded.longitude`,
			a.ComplexNo, a.ComplexName, a.DongName, a.Sigungu, a.DetailAddress, a.TotalHouseholds,
			nullFloat(a.Latitude), nullFloat(a.Longitude),
		); err != nil {
			return 0, fmt.Errorf("upsert apartment %d: %w", a.ComplexNo, err)
		}

		if _, err := s.exec(ctx, tx, `DELETE FROM apartment_prices WHERE complex_no = ?`, a.ComplexNo); err != nil {
			return 0, fmt.Errorf("clear prices %d: %w", a.ComplexNo, err)
		}
		for _, p := range a.Prices {
			if _, err := s.exec(ctx, tx, `
INSERT INTO apartment_prices
(complex_no, transaction_type, exclusive_area, pyeong, sale_price, lease_price, gap, lease_rate, highest_price, change_from_peak)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				a.ComplexNo, p.TransactionType, p.ExclusiveArea, p.Pyeong,
				nullFloat(p.SalePrice), nullFloat(p.LeasePrice), nullFloat(p.Gap),
				nullFloat(p.LeaseRate), nullFloat(p.HighestPrice), nullFloat(p.ChangeFromPeak),
			); err != nil {
				return 0, fmt.Errorf("insert price %d: %w", a.ComplexNo, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.logger.Debug().Int("apartments", len(items)).Msg("upserted apartments")
	return len(items), nil
}

func (s *Store) CountApartments(ctx context.Context) (int, error) {
	var n int
	err := s.queryRow(ctx, s.db, `SELECT COUNT(*) FROM apartments`).Scan(&n)
	return n, err
}
