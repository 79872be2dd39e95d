package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formloom/formloom/internal/runtime"
	"github.com/formloom/formloom/internal/store"
)

type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleEmbedJS(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("form")
	if slug == "" {
		http.Error(w, "form parameter required", http.StatusBadRequest)
		return
	}
	mode := r.URL.Query().Get("mode")

	script := runtime.EmbedScript(s.serverURL(r), slug, mode)

	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.Write([]byte(script))
}

// handleResolvedForm serves the resolved form for one visitor, as rendered
// HTML for the embed script or as JSON for headless consumers.
func (s *Server) handleResolvedForm(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	visitorID := r.URL.Query().Get("vid")

	snap, err := s.loader.Load(r.Context(), slug)
	if err != nil {
		if errors.Is(err, runtime.ErrFormNotFound) {
			http.Error(w, "form not found", http.StatusNotFound)
			return
		}
		s.writeError(w, err)
		return
	}

	rf := runtime.Resolve(snap, visitorID)

	// First sight of a variant counts one impression per visitor.
	if rf.VariantID != "" && snap.Test != nil && snap.Test.Status == store.TestRunning {
		s.countVariantEvent(r, snap.Form.ID, rf.VariantID, store.EventView, visitorID, 1, 0)
	}

	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(runtime.RenderHTML(rf, r.URL.Query().Get("mode"))))
		return
	}

	s.writeJSON(w, http.StatusOK, rf)
}

type evaluateRequest struct {
	Values map[string]string `json:"values"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req evaluateRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, "invalid JSON")
		return
	}

	snap, err := s.loader.Load(r.Context(), slug)
	if err != nil {
		if errors.Is(err, runtime.ErrFormNotFound) {
			http.Error(w, "form not found", http.StatusNotFound)
			return
		}
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, runtime.Evaluate(snap, req.Values))
}

type submitRequest struct {
	VisitorID string            `json:"vid"`
	Values    map[string]string `json:"values"`
}

type submitResponse struct {
	ID         string                 `json:"id"`
	PostSubmit store.PostSubmitConfig `json:"post_submit"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req submitRequest
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, "invalid JSON")
		return
	}

	snap, err := s.loader.Load(r.Context(), slug)
	if err != nil {
		if errors.Is(err, runtime.ErrFormNotFound) {
			http.Error(w, "form not found", http.StatusNotFound)
			return
		}
		s.writeError(w, err)
		return
	}

	if errs := runtime.ValidateSubmission(snap, req.Values); len(errs) > 0 {
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "validation failed",
			Errors: errs,
		})
		return
	}

	rf := runtime.Resolve(snap, req.VisitorID)

	sub := &store.Submission{
		ID:        uuid.NewString(),
		FormID:    snap.Form.ID,
		VariantID: rf.VariantID,
		Data:      runtime.NormalizeValues(snap, req.Values),
		VisitorID: req.VisitorID,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	if err := s.store.CreateSubmission(r.Context(), sub); err != nil {
		s.writeError(w, err)
		return
	}

	if _, err := s.store.RecordEvent(r.Context(), snap.Form.ID, rf.VariantID, store.EventSubmit, req.VisitorID); err != nil {
		s.log.Warn("failed to record submit event", zap.Error(err))
	}

	// A submission is the conversion the test measures.
	if rf.VariantID != "" && snap.Test != nil && snap.Test.Status == store.TestRunning {
		s.countVariantEvent(r, snap.Form.ID, rf.VariantID, store.EventConvert, req.VisitorID, 0, 1)
	}

	s.writeJSON(w, http.StatusOK, submitResponse{
		ID:         sub.ID,
		PostSubmit: snap.Form.PostSubmit,
	})
}

// BeaconRequest is the wire shape of a funnel beacon.
type BeaconRequest struct {
	FormSlug  string `json:"f"`
	EventType string `json:"e"`
	VisitorID string `json:"vid"`
}

func (s *Server) handleBeacon(w http.ResponseWriter, r *http.Request) {
	var req BeaconRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.FormSlug == "" || req.VisitorID == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	typ := store.EventType(req.EventType)
	switch typ {
	case store.EventView, store.EventStart, store.EventSubmit:
	default:
		http.Error(w, "Invalid event type", http.StatusBadRequest)
		return
	}

	snap, err := s.loader.Load(r.Context(), req.FormSlug)
	if err != nil {
		if errors.Is(err, runtime.ErrFormNotFound) {
			http.Error(w, "form not found", http.StatusNotFound)
			return
		}
		s.writeError(w, err)
		return
	}

	if _, err := s.store.RecordEvent(r.Context(), snap.Form.ID, "", typ, req.VisitorID); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// countVariantEvent records a deduplicated funnel event against a variant
// and, only when the event is new for this visitor, bumps its counters.
func (s *Server) countVariantEvent(r *http.Request, formID, variantID string, typ store.EventType, visitorID string, impressions, conversions int) {
	if visitorID == "" {
		return
	}
	inserted, err := s.store.RecordEvent(r.Context(), formID, variantID, typ, visitorID)
	if err != nil {
		s.log.Warn("failed to record variant event", zap.Error(err), zap.String("variant_id", variantID))
		return
	}
	if !inserted {
		return
	}
	if err := s.store.AddVariantCounts(r.Context(), variantID, impressions, conversions); err != nil {
		s.log.Warn("failed to update variant counters", zap.Error(err), zap.String("variant_id", variantID))
	}
}
