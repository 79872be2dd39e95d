package server

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formloom/formloom/internal/forms"
	"github.com/formloom/formloom/internal/runtime"
	"github.com/formloom/formloom/internal/snippets"
	"github.com/formloom/formloom/internal/stats"
	"github.com/formloom/formloom/internal/store"
)

// invalidateForm drops the cached snapshot for a form after an editor
// write, so published embeds pick the change up within one request.
func (s *Server) invalidateForm(ctx context.Context, formID string) {
	form, err := s.store.GetForm(ctx, formID)
	if err != nil {
		return
	}
	s.loader.Invalidate(ctx, form.Slug)
}

// --- Forms ---

func (s *Server) handleListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := s.store.ListForms(r.Context(), r.URL.Query().Get("org_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if forms == nil {
		forms = []*store.Form{}
	}
	s.writeJSON(w, http.StatusOK, forms)
}

func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	var form store.Form
	if err := decodeBody(r, &form); err != nil {
		s.badRequest(w, "invalid JSON")
		return
	}
	if form.Name == "" || form.Slug == "" {
		s.badRequest(w, "name and slug are required")
		return
	}
	if form.ID == "" {
		form.ID = uuid.NewString()
	}
	if form.Kind == "" {
		form.Kind = store.KindEmbedded
	}
	form.Status = store.StatusDraft

	if err := s.store.CreateForm(r.Context(), &form); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, form)
}

func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	form, err := s.store.GetForm(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, form)
}

func (s *Server) handleUpdateForm(w http.ResponseWriter, r *http.Request) {
	var form store.Form
	if err := decodeBody(r, &form); err != nil {
		s.badRequest(w, "invalid JSON")
		return
	}
	form.ID = chi.URLParam(r, "formID")

	if err := s.store.UpdateForm(r.Context(), &form); err != nil {
		s.writeError(w, err)
		return
	}
	s.loader.Invalidate(r.Context(), form.Slug)
	s.writeJSON(w, http.StatusOK, form)
}

func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	s.invalidateForm(r.Context(), formID)
	if err := s.store.DeleteForm(r.Context(), formID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePublishForm(w http.ResponseWriter, r *http.Request) {
	s.setFormStatus(w, r, store.StatusPublished)
}

func (s *Server) handleArchiveForm(w http.ResponseWriter, r *http.Request) {
	s.setFormStatus(w, r, store.StatusArchived)
}

func (s *Server) setFormStatus(w http.ResponseWriter, r *http.Request, status store.FormStatus) {
	formID := chi.URLParam(r, "formID")
	if err := s.store.SetFormStatus(r.Context(), formID, status); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateForm(r.Context(), formID)

	form, err := s.store.GetForm(r.Context(), formID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, form)
}

// handlePreviewForm resolves the form for the editor regardless of its
// publication status, bypassing the snapshot cache.
func (s *Server) handlePreviewForm(w http.ResponseWriter, r *http.Request) {
	snap, err := s.editorSnapshot(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	rf := runtime.Resolve(snap, r.URL.Query().Get("vid"))
	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(runtime.RenderHTML(rf, "inline")))
		return
	}
	s.writeJSON(w, http.StatusOK, rf)
}

func (s *Server) editorSnapshot(ctx context.Context, formID string) (*runtime.Snapshot, error) {
	form, err := s.store.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}

	snap := &runtime.Snapshot{Form: *form}
	if snap.Fields, err = s.store.ListFields(ctx, formID); err != nil {
		return nil, err
	}
	if snap.Style, err = s.store.GetStyle(ctx, formID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if snap.Rules, err = s.store.ListRules(ctx, formID); err != nil {
		return nil, err
	}
	test, err := s.store.ActiveTest(ctx, formID)
	if err == nil {
		snap.Test = test
		if snap.Variants, err = s.store.ListVariants(ctx, test.ID); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (s *Server) handleFunnel(w http.ResponseWriter, r *http.Request) {
	funnel, err := s.store.FunnelStats(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, funnel)
}

func (s *Server) handleSnippet(w http.ResponseWriter, r *http.Request) {
	form, err := s.store.GetForm(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	framework := snippets.Framework(r.URL.Query().Get("framework"))
	if framework == "" {
		framework = snippets.FrameworkHTML
	}

	files, err := snippets.Generate(framework, snippets.Config{
		Slug:      form.Slug,
		ServerURL: s.serverURL(r),
		Mode:      r.URL.Query().Get("mode"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, files)
}

// --- Fields ---

func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	fields, err := s.store.ListFields(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if fields == nil {
		fields = []store.Field{}
	}
	s.writeJSON(w, http.StatusOK, fields)
}

func (s *Server) handleCreateField(w http.ResponseWriter, r *http.Request) {
	var field store.Field
	if err := decodeBody(r, &field); err != nil {
		s.badRequest(w, "invalid JSON")
		return
	}
	field.FormID = chi.URLParam(r, "formID")
	if field.Type == "" {
		s.badRequest(w, "type is required")
		return
	}
	if field.ID == "" {
		field.ID = uuid.NewString()
	}
	if field.Width == "" {
		field.Width = store.WidthFull
	}
	if field.Name == "" {
		field.Name = forms.Slugify(field.Label)
	}

	if err := s.store.CreateField(r.Context(), &field); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateForm(r.Context(), field.FormID)
	s.writeJSON(w, http.StatusCreated, field)
}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	var field store.Field
	if err := decodeBody(r, &field); err != nil {
		s.badRequest(w, "invalid JSON")
		return
	}
	field.ID = chi.URLParam(r, "fieldID")

	// The body may omit form_id; the stored record is authoritative.
	existing, err := s.store.GetField(r.Context(), field.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	field.FormID = existing.FormID
	if field.Name == "" {
		field.Name = forms.Slugify(field.Label)
	}

	if err := s.store.UpdateField(r.Context(), &field); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateForm(r.Context(), field.FormID)
	s.writeJSON(w, http.StatusOK, field)
}

func (s *Server) handleDeleteField(w http.ResponseWriter, r *http.Request) {
	field, err := s.store.GetField(r.Context(), chi.URLParam(r, "fieldID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.DeleteField(r.Context(), field.ID); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateForm(r.Context(), field.FormID)
	w.WriteHeader(http.StatusNoContent)
}

// --- Styles ---

func (s *Server) handleGetStyle(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	style, err := s.store.GetStyle(r.Context(), formID)
	if errors.Is(err, store.ErrNotFound) {
		// A form without a saved style is a valid empty style.
		style = &store.FormStyle{FormID: formID}
	} else if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, style)
}

func (s *Server) handleSaveStyle(w http.ResponseWriter, r *http.Request) {
	var style store.FormStyle
	if err := decodeBody(r, &style); err != nil {
		s.badRequest(w, "invalid JSON")
		return
	}
	style.FormID = chi.URLParam(r, "formID")

	if err := s.store.SaveStyle(r.Context(), &style); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateForm(r.Context(), style.FormID)
	s.writeJSON(w, http.StatusOK, style)
}

// --- Rules ---

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.store.ListRules(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if rules == nil {
		rules = []store.Rule{}
	}
	s.writeJSON(w, http.StatusOK, rules)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var rule store.Rule
	if err := decodeBody(r, &rule); err != nil {
		s.badRequest(w, "invalid JSON")
		return
	}
	rule.FormID = chi.URLParam(r, "formID")
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.Logic == "" {
		rule.Logic = store.LogicAnd
	}

	if err := s.store.CreateRule(r.Context(), &rule); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateForm(r.Context(), rule.FormID)
	s.writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var rule store.Rule
	if err := decodeBody(r, &rule); err != nil {
		s.badRequest(w, "invalid JSON")
		return
	}
	rule.ID = chi.URLParam(r, "ruleID")

	existing, err := s.store.GetRule(r.Context(), rule.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rule.FormID = existing.FormID

	if err := s.store.UpdateRule(r.Context(), &rule); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateForm(r.Context(), rule.FormID)
	s.writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.store.GetRule(r.Context(), chi.URLParam(r, "ruleID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.DeleteRule(r.Context(), rule.ID); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateForm(r.Context(), rule.FormID)
	w.WriteHeader(http.StatusNoContent)
}

// --- A/B tests ---

func (s *Server) handleListTests(w http.ResponseWriter, r *http.Request) {
	tests, err := s.store.ListTests(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if tests == nil {
		tests = []*store.ABTest{}
	}
	s.writeJSON(w, http.StatusOK, tests)
}

func (s *Server) handleCreateTest(w http.ResponseWriter, r *http.Request) {
	var test store.ABTest
	if err := decodeBody(r, &test); err != nil {
		s.badRequest(w, "invalid JSON")
		return
	}
	test.FormID = chi.URLParam(r, "formID")
	if test.Name == "" {
		s.badRequest(w, "name is required")
		return
	}
	if test.ID == "" {
		test.ID = uuid.NewString()
	}
	test.Status = store.TestDraft

	if err := s.store.CreateTest(r.Context(), &test); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, test)
}

func (s *Server) handleGetTest(w http.ResponseWriter, r *http.Request) {
	test, err := s.store.GetTest(r.Context(), chi.URLParam(r, "testID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, test)
}

func (s *Server) handleTestResults(w http.ResponseWriter, r *http.Request) {
	testID := chi.URLParam(r, "testID")

	test, err := s.store.GetTest(r.Context(), testID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	variants, err := s.store.ListVariants(r.Context(), testID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, stats.Analyze(test, variants))
}

func (s *Server) handleStartTest(w http.ResponseWriter, r *http.Request) {
	s.transitionTest(w, r, s.tests.Start)
}

func (s *Server) handlePauseTest(w http.ResponseWriter, r *http.Request) {
	s.transitionTest(w, r, s.tests.Pause)
}

func (s *Server) handleResumeTest(w http.ResponseWriter, r *http.Request) {
	s.transitionTest(w, r, s.tests.Resume)
}

func (s *Server) transitionTest(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) error) {
	testID := chi.URLParam(r, "testID")
	if err := fn(r.Context(), testID); err != nil {
		s.writeError(w, err)
		return
	}
	s.afterTestChange(w, r, testID)
}

type concludeRequest struct {
	WinnerID string `json:"winner_id"`
}

func (s *Server) handleConcludeTest(w http.ResponseWriter, r *http.Request) {
	// The winner is optional: a test may be concluded without one, and an
	// empty body means exactly that.
	var req concludeRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(w, "invalid JSON")
		return
	}

	testID := chi.URLParam(r, "testID")
	if err := s.tests.Conclude(r.Context(), testID, req.WinnerID); err != nil {
		s.writeError(w, err)
		return
	}
	s.afterTestChange(w, r, testID)
}

func (s *Server) afterTestChange(w http.ResponseWriter, r *http.Request, testID string) {
	test, err := s.store.GetTest(r.Context(), testID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateForm(r.Context(), test.FormID)
	s.writeJSON(w, http.StatusOK, test)
}

// --- Variants ---

func (s *Server) handleListVariants(w http.ResponseWriter, r *http.Request) {
	variants, err := s.store.ListVariants(r.Context(), chi.URLParam(r, "testID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if variants == nil {
		variants = []store.Variant{}
	}
	s.writeJSON(w, http.StatusOK, variants)
}

func (s *Server) handleCreateVariant(w http.ResponseWriter, r *http.Request) {
	var v store.Variant
	if err := decodeBody(r, &v); err != nil {
		s.badRequest(w, "invalid JSON")
		return
	}
	v.TestID = chi.URLParam(r, "testID")
	if v.Letter == "" {
		s.badRequest(w, "letter is required")
		return
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}

	if err := s.store.CreateVariant(r.Context(), &v); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleUpdateVariant(w http.ResponseWriter, r *http.Request) {
	var v store.Variant
	if err := decodeBody(r, &v); err != nil {
		s.badRequest(w, "invalid JSON")
		return
	}
	v.ID = chi.URLParam(r, "variantID")

	if err := s.store.UpdateVariant(r.Context(), &v); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteVariant(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteVariant(r.Context(), chi.URLParam(r, "variantID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Submissions ---

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	subs, err := s.store.ListSubmissions(r.Context(), chi.URLParam(r, "formID"), limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if subs == nil {
		subs = []store.Submission{}
	}
	s.writeJSON(w, http.StatusOK, subs)
}

const exportBatchSize = 500

// handleExportSubmissions streams all submissions for a form as CSV, one
// column per input field plus submission metadata.
func (s *Server) handleExportSubmissions(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")

	form, err := s.store.GetForm(r.Context(), formID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	fields, err := s.store.ListFields(r.Context(), formID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var inputFields []store.Field
	for _, f := range fields {
		if !f.Type.IsLayout() {
			inputFields = append(inputFields, f)
		}
	}
	sort.SliceStable(inputFields, func(i, j int) bool {
		return inputFields[i].SortOrder < inputFields[j].SortOrder
	})

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-submissions.csv"`, form.Slug))

	cw := csv.NewWriter(w)
	header := []string{"id", "created_at", "visitor_id", "variant_id"}
	for _, f := range inputFields {
		header = append(header, f.Name)
	}
	if err := cw.Write(header); err != nil {
		s.log.Error("failed to write csv header", zap.Error(err))
		return
	}

	for offset := 0; ; offset += exportBatchSize {
		subs, err := s.store.ListSubmissions(r.Context(), formID, exportBatchSize, offset)
		if err != nil {
			s.log.Error("failed to list submissions for export", zap.Error(err))
			return
		}
		for _, sub := range subs {
			row := []string{sub.ID, sub.CreatedAt.Format(time.RFC3339), sub.VisitorID, sub.VariantID}
			for _, f := range inputFields {
				row = append(row, sub.Data[f.ID])
			}
			if err := cw.Write(row); err != nil {
				s.log.Error("failed to write csv row", zap.Error(err))
				return
			}
		}
		if len(subs) < exportBatchSize {
			break
		}
	}
	cw.Flush()
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
