package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
)

type SessionResponse struct {
	SessionID string         `json:"session_id"`
	Message   domain.Message `json:"message"`
}

func (s *Server) handleChatSession(w http.ResponseWriter, r *http.Request) {
	sess, msg, err := s.advisor.StartSession(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{SessionID: sess.ID, Message: msg})
}

type MessagesResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []domain.Message `json:"messages"`
}

func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	msgs, err := s.advisor.Messages(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{SessionID: id, Messages: msgs})
}

type ChatMessageRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatMessageRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.advisor.HandleMessage(r.Context(), chi.URLParam(r, "sessionID"), req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
