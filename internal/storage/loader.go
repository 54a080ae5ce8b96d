package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
)

// LoadApartmentsFromFile reads a JSON array of complexes with their price rows.
func LoadApartmentsFromFile(path string) ([]domain.Apartment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read apartments file: %w", err)
	}

	var items []domain.Apartment
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("unmarshal apartments: %w", err)
	}
	return items, nil
}

// SeedIfEmpty loads path into the store when no apartments exist yet. It
// returns the number of complexes written.
func (s *Store) SeedIfEmpty(ctx context.Context, path string) (int, error) {
	n, err := s.CountApartments(ctx)
	if err != nil {
		return 0, fmt.Errorf("count apartments: %w", err)
	}
	if n > 0 || path == "" {
		return 0, nil
	}
	items, err := LoadApartmentsFromFile(path)
	if err != nil {
		return 0, err
	}
	return s.UpsertApartments(ctx, items)
}
