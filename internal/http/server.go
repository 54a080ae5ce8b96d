// Package httpapi exposes the advisor over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/apartment-advisor/internal/advisor"
	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
	"github.com/denisok6893-rgb/apartment-advisor/internal/validation"
)

const maxBodyBytes = 1 << 20

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	RateLimit   int
	RateWindow  time.Duration
	CORSOrigins []string
}

type Server struct {
	advisor    *advisor.Service
	apartments ApartmentRepo
	pinger     Pinger
	opts       Options
	logger     zerolog.Logger
}

func NewServer(svc *advisor.Service, repo ApartmentRepo, pinger Pinger, opts Options, logger zerolog.Logger) *Server {
	return &Server{
		advisor:    svc,
		apartments: repo,
		pinger:     pinger,
		opts:       opts,
		logger:     logger.With().Str("component", "http").Logger(),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(requestID)
	r.Use(s.observe)
	r.Use(chimiddleware.Recoverer)
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(corsHandler(s.opts.CORSOrigins))
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.opts.RateLimit > 0 {
			r.Use(rateLimit(s.opts.RateLimit, s.opts.RateWindow))
		}
		r.Post("/budget", s.handleBudget)
		r.Post("/match", s.handleMatch)

		r.Post("/chat/session", s.handleChatSession)
		r.Get("/chat/{sessionID}/messages", s.handleChatMessages)
		r.Post("/chat/{sessionID}/message", s.handleChatMessage)

		r.Get("/apartments", s.handleApartmentsList)
		r.Post("/apartments", s.handleApartmentsUpsert)
		r.Get("/apartments/{complexNo}", s.handleApartmentGet)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type FinancialRequest struct {
	Purpose           string  `json:"purpose" validate:"required,oneof=residence gap_investment"`
	AnnualSalary      float64 `json:"annual_salary" validate:"gte=0"`
	AvailableCash     float64 `json:"available_cash" validate:"gte=0"`
	AnnualDebtService float64 `json:"annual_debt_service" validate:"gte=0"`
}

func (f FinancialRequest) profile() domain.FinancialProfile {
	return domain.FinancialProfile{
		Purpose:           domain.Purpose(f.Purpose),
		AnnualSalary:      f.AnnualSalary,
		AvailableCash:     f.AvailableCash,
		AnnualDebtService: f.AnnualDebtService,
	}
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	var req FinancialRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.advisor.Budget(req.profile()))
}

type MatchRequest struct {
	Profile struct {
		FinancialRequest
		WorkLocation  string  `json:"work_location" validate:"max=100"`
		PreferredArea string  `json:"preferred_area" validate:"max=100"`
		MinPyeong     float64 `json:"min_pyeong" validate:"gte=0"`
		MaxPyeong     float64 `json:"max_pyeong" validate:"omitempty,gtefield=MinPyeong"`
	} `json:"profile"`
	Limit int `json:"limit" validate:"gte=0,lte=20"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !s.decode(w, r, &req) {
		return
	}

	limit := req.Limit
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 20 {
			limit = parsed
		}
	}

	p := req.Profile
	res, err := s.advisor.Match(r.Context(), domain.ClientProfile{
		FinancialProfile: p.profile(),
		WorkLocation:     p.WorkLocation,
		PreferredArea:    p.PreferredArea,
		MinPyeong:        p.MinPyeong,
		MaxPyeong:        p.MaxPyeong,
	}, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decode reads a JSON body into dst and validates it. On failure it writes
// the error response and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, r, domain.Invalid("invalid JSON: %v", err))
		return false
	}
	if err := validation.Struct(dst); err != nil {
		s.writeError(w, r, err)
		return false
	}
	return true
}

func parseLimitOffset(r *http.Request, defLimit, defOffset int) (int, int) {
	q := r.URL.Query()

	limit := defLimit
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = defLimit
	}
	if limit > 200 {
		limit = 200
	}

	offset := defOffset
	if v := q.Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = defOffset
	}

	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
