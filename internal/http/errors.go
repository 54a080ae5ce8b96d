package httpapi

import (
	"errors"
	"net/http"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
	"github.com/denisok6893-rgb/apartment-advisor/internal/logging"
	"github.com/denisok6893-rgb/apartment-advisor/internal/validation"
)

type errorResponse struct {
	Error   string                  `json:"error"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

// classify maps an error category to a status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrProfileIncomplete):
		return http.StatusUnprocessableEntity, "profile_incomplete"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "upstream_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	resp := errorResponse{Error: code, Message: err.Error()}

	var verr *validation.Error
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}

	log := logging.Ctx(r.Context(), s.logger)
	switch {
	case status == http.StatusInternalServerError:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		resp.Message = "internal error"
	case status == http.StatusServiceUnavailable:
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("upstream unavailable")
		resp.Message = "서비스가 일시적으로 응답하지 않습니다. 잠시 후 다시 시도해 주세요."
	default:
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
	}
	writeJSON(w, status, resp)
}
