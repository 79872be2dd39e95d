package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/formloom/formloom/internal/dashboard"
	"github.com/formloom/formloom/internal/stats"
	"github.com/formloom/formloom/internal/store"
)

type layoutData struct {
	Title   string
	CSS     template.CSS
	Content template.HTML
}

type listData struct {
	Forms []formListItem
}

type formListItem struct {
	ID             string
	Name           string
	Slug           string
	Kind           string
	Status         string
	Views          int
	Submissions    int
	ConversionRate string
	CreatedAt      string
}

type detailData struct {
	Form              formDetailItem
	Funnel            funnelItem
	Test              *store.ABTest
	Variants          []detailVariant
	Confident         bool
	ConfidencePercent string
	LeadingName       string
	Submissions       []submissionItem
}

type formDetailItem struct {
	ID        string
	Name      string
	Slug      string
	Kind      string
	Status    string
	CreatedAt string
}

type funnelItem struct {
	Views          int
	Starts         int
	Submissions    int
	ConversionRate string
}

type detailVariant struct {
	Letter         string
	Name           string
	Control        bool
	Leading        bool
	Impressions    int
	Conversions    int
	RatePercent    string
	CILowerPercent string
	CIUpperPercent string
}

type submissionItem struct {
	CreatedAt string
	VisitorID string
	VariantID string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("logout") == "1" {
		http.SetCookie(w, &http.Cookie{
			Name:   tokenCookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	ctx := r.Context()

	forms, err := s.store.ListForms(ctx, "")
	if err != nil {
		http.Error(w, "Failed to load forms", http.StatusInternalServerError)
		return
	}

	items := make([]formListItem, len(forms))
	for i, f := range forms {
		funnel, _ := s.store.FunnelStats(ctx, f.ID)
		if funnel == nil {
			funnel = &store.FunnelStats{}
		}

		items[i] = formListItem{
			ID:             f.ID,
			Name:           f.Name,
			Slug:           f.Slug,
			Kind:           string(f.Kind),
			Status:         string(f.Status),
			Views:          funnel.Views,
			Submissions:    funnel.Submissions,
			ConversionRate: conversionRate(funnel),
			CreatedAt:      f.CreatedAt.Format("02/01/2006"),
		}
	}

	s.renderDashboard(w, "Formulários", "list.html", listData{Forms: items})
}

func (s *Server) handleDashboardForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	formID := chi.URLParam(r, "formID")

	form, err := s.store.GetForm(ctx, formID)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	funnel, err := s.store.FunnelStats(ctx, formID)
	if err != nil {
		http.Error(w, "Failed to load stats", http.StatusInternalServerError)
		return
	}

	data := detailData{
		Form: formDetailItem{
			ID:        form.ID,
			Name:      form.Name,
			Slug:      form.Slug,
			Kind:      string(form.Kind),
			Status:    string(form.Status),
			CreatedAt: form.CreatedAt.Format("02/01/2006"),
		},
		Funnel: funnelItem{
			Views:          funnel.Views,
			Starts:         funnel.Starts,
			Submissions:    funnel.Submissions,
			ConversionRate: conversionRate(funnel),
		},
	}

	test, err := s.store.ActiveTest(ctx, formID)
	if err == nil {
		variants, err := s.store.ListVariants(ctx, test.ID)
		if err != nil {
			http.Error(w, "Failed to load variants", http.StatusInternalServerError)
			return
		}
		result := stats.Analyze(test, variants)

		data.Test = test
		data.Confident = result.Confident
		data.ConfidencePercent = formatPercentage(result.ConfidenceLevel * 100)
		data.Variants = make([]detailVariant, len(result.Variants))
		for i, v := range result.Variants {
			data.Variants[i] = detailVariant{
				Letter:         v.Letter,
				Name:           v.Name,
				Control:        v.Control,
				Leading:        i == result.Leading,
				Impressions:    v.Impressions,
				Conversions:    v.Conversions,
				RatePercent:    formatPercentage(v.Rate * 100),
				CILowerPercent: formatPercentage(v.CILower * 100),
				CIUpperPercent: formatPercentage(v.CIUpper * 100),
			}
		}
		if result.Leading < len(result.Variants) {
			data.LeadingName = result.Variants[result.Leading].Name
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Failed to load test", http.StatusInternalServerError)
		return
	}

	subs, err := s.store.ListSubmissions(ctx, formID, 10, 0)
	if err != nil {
		http.Error(w, "Failed to load submissions", http.StatusInternalServerError)
		return
	}
	for _, sub := range subs {
		data.Submissions = append(data.Submissions, submissionItem{
			CreatedAt: sub.CreatedAt.Format("02/01/2006 15:04"),
			VisitorID: sub.VisitorID,
			VariantID: sub.VariantID,
		})
	}

	s.renderDashboard(w, form.Name, "detail.html", data)
}

func (s *Server) renderDashboard(w http.ResponseWriter, title, contentTemplate string, data any) {
	cssBytes, err := dashboard.Assets.ReadFile("assets/style.css")
	if err != nil {
		http.Error(w, "Failed to load styles", http.StatusInternalServerError)
		return
	}

	contentTmplBytes, err := dashboard.Templates.ReadFile("templates/" + contentTemplate)
	if err != nil {
		http.Error(w, "Failed to load template", http.StatusInternalServerError)
		return
	}

	contentTmpl, err := template.New("content").Parse(string(contentTmplBytes))
	if err != nil {
		http.Error(w, "Failed to parse template", http.StatusInternalServerError)
		return
	}

	var contentBuf bytes.Buffer
	if err := contentTmpl.Execute(&contentBuf, data); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render template: %v", err), http.StatusInternalServerError)
		return
	}

	layoutTmplBytes, err := dashboard.Templates.ReadFile("templates/layout.html")
	if err != nil {
		http.Error(w, "Failed to load layout", http.StatusInternalServerError)
		return
	}

	layoutTmpl, err := template.New("layout").Parse(string(layoutTmplBytes))
	if err != nil {
		http.Error(w, "Failed to parse layout", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := layoutTmpl.Execute(w, layoutData{
		Title:   title,
		CSS:     template.CSS(cssBytes),
		Content: template.HTML(contentBuf.String()),
	}); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
}

func conversionRate(f *store.FunnelStats) string {
	if f.Views == 0 {
		return "0%"
	}
	return formatPercentage(float64(f.Submissions) / float64(f.Views) * 100)
}

func formatPercentage(p float64) string {
	if p < 0.01 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", p)
}
