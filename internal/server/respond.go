package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/formloom/formloom/internal/store"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
	}
}

// writeError maps store sentinels onto HTTP status codes; anything
// unexpected is logged and reported as a bare 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, store.ErrSlugTaken):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: "slug already in use"})
	case errors.Is(err, store.ErrTestRunning):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: "variants are locked while the test is running"})
	case errors.Is(err, store.ErrInvalidTransition):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: "invalid status transition"})
	default:
		s.log.Error("request failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
