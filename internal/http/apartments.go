package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
)

type ApartmentsListResponse struct {
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
	Total  int                `json:"total"`
	Items  []ApartmentSummary `json:"items"`
}

func (s *Server) handleApartmentsList(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 20, 0)
	q := r.URL.Query()

	items, total, err := s.apartments.List(r.Context(), ListParams{
		Limit:    limit,
		Offset:   offset,
		Purpose:  q.Get("purpose"),
		Sigungu:  q.Get("sigungu"),
		MinPrice: q.Get("min_price"),
		MaxPrice: q.Get("max_price"),
		Sort:     q.Get("sort"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ApartmentsListResponse{
		Limit:  limit,
		Offset: offset,
		Total:  total,
		Items:  items,
	})
}

func (s *Server) handleApartmentGet(w http.ResponseWriter, r *http.Request) {
	complexNo, err := strconv.ParseInt(chi.URLParam(r, "complexNo"), 10, 64)
	if err != nil || complexNo <= 0 {
		s.writeError(w, r, domain.Invalid("complex number must be a positive integer"))
		return
	}
	apt, err := s.apartments.Get(r.Context(), complexNo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apt)
}

type UpsertApartmentsRequest struct {
	Apartments []domain.Apartment `json:"apartments" validate:"required,min=1,max=1000"`
}

func (s *Server) handleApartmentsUpsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertApartmentsRequest
	if !s.decode(w, r, &req) {
		return
	}
	n, err := s.apartments.Upsert(r.Context(), req.Apartments)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"upserted": n})
}
