// Package server exposes the admin API, the public form runtime and the
// dashboard over one HTTP listener.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/formloom/formloom/internal/abtest"
	"github.com/formloom/formloom/internal/runtime"
	"github.com/formloom/formloom/internal/store"
)

type Server struct {
	store     store.Store
	loader    *runtime.Loader
	tests     *abtest.Service
	log       *zap.Logger
	port      int
	publicURL string
	token     string
	tokenFile string
	router    chi.Router
	startTime time.Time
}

type Options struct {
	Port        int
	PublicURL   string
	TokenFile   string
	CORSOrigins []string
}

func New(s store.Store, loader *runtime.Loader, log *zap.Logger, opts Options) *Server {
	srv := &Server{
		store:     s,
		loader:    loader,
		tests:     &abtest.Service{Store: s},
		log:       log,
		port:      opts.Port,
		publicURL: opts.PublicURL,
		token:     generateToken(),
		tokenFile: opts.TokenFile,
		startTime: time.Now(),
	}

	srv.router = srv.routes(opts.CORSOrigins)
	return srv
}

func (s *Server) routes(corsOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origins := corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Public runtime
	r.Get("/health", s.handleHealth)
	r.Get("/embed.js", s.handleEmbedJS)
	r.Post("/b", s.handleBeacon)
	r.Route("/f/{slug}", func(r chi.Router) {
		r.Get("/", s.handleResolvedForm)
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/submit", s.handleSubmit)
	})

	// Admin API (protected)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/forms", func(r chi.Router) {
			r.Get("/", s.handleListForms)
			r.Post("/", s.handleCreateForm)
			r.Route("/{formID}", func(r chi.Router) {
				r.Get("/", s.handleGetForm)
				r.Put("/", s.handleUpdateForm)
				r.Delete("/", s.handleDeleteForm)
				r.Post("/publish", s.handlePublishForm)
				r.Post("/archive", s.handleArchiveForm)
				r.Get("/preview", s.handlePreviewForm)
				r.Get("/funnel", s.handleFunnel)
				r.Get("/snippet", s.handleSnippet)

				r.Get("/fields", s.handleListFields)
				r.Post("/fields", s.handleCreateField)

				r.Get("/style", s.handleGetStyle)
				r.Put("/style", s.handleSaveStyle)

				r.Get("/rules", s.handleListRules)
				r.Post("/rules", s.handleCreateRule)

				r.Get("/tests", s.handleListTests)
				r.Post("/tests", s.handleCreateTest)

				r.Get("/submissions", s.handleListSubmissions)
				r.Get("/submissions/export", s.handleExportSubmissions)
			})
		})

		r.Route("/fields/{fieldID}", func(r chi.Router) {
			r.Put("/", s.handleUpdateField)
			r.Delete("/", s.handleDeleteField)
		})

		r.Route("/rules/{ruleID}", func(r chi.Router) {
			r.Put("/", s.handleUpdateRule)
			r.Delete("/", s.handleDeleteRule)
		})

		r.Route("/tests/{testID}", func(r chi.Router) {
			r.Get("/", s.handleGetTest)
			r.Get("/results", s.handleTestResults)
			r.Post("/start", s.handleStartTest)
			r.Post("/pause", s.handlePauseTest)
			r.Post("/resume", s.handleResumeTest)
			r.Post("/conclude", s.handleConcludeTest)
			r.Get("/variants", s.handleListVariants)
			r.Post("/variants", s.handleCreateVariant)
		})

		r.Route("/variants/{variantID}", func(r chi.Router) {
			r.Put("/", s.handleUpdateVariant)
			r.Delete("/", s.handleDeleteVariant)
		})
	})

	// Dashboard (protected)
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/dashboard/forms/{formID}", s.handleDashboardForm)
	})

	return r
}

func (s *Server) Start() error {
	if s.tokenFile != "" {
		if err := os.WriteFile(s.tokenFile, []byte(s.token), 0600); err != nil {
			s.log.Warn("failed to write token file", zap.Error(err))
		}
	}

	s.log.Info("formloom running",
		zap.Int("port", s.port),
		zap.String("dashboard", fmt.Sprintf("http://localhost:%d/dashboard?token=%s", s.port, s.token)))

	return http.ListenAndServe(fmt.Sprintf(":%d", s.port), s.router)
}

func (s *Server) Token() string {
	return s.token
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// serverURL resolves the externally reachable base URL, preferring the
// configured public URL over the request host.
func (s *Server) serverURL(r *http.Request) string {
	if s.publicURL != "" {
		return s.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

func generateToken() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "a1b2c3d4e5f60718"
	}
	return hex.EncodeToString(bytes)
}
