package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/globaltrusthub/trusthub/internal/alerts"
	"github.com/globaltrusthub/trusthub/internal/decay"
	"github.com/globaltrusthub/trusthub/internal/decision"
	"github.com/globaltrusthub/trusthub/internal/domain"
	"github.com/globaltrusthub/trusthub/internal/fraud"
	"github.com/globaltrusthub/trusthub/internal/patterns"
	"github.com/globaltrusthub/trusthub/internal/ratelimit"
	"github.com/globaltrusthub/trusthub/internal/rules"
	"github.com/globaltrusthub/trusthub/internal/trust"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// Dependencies bundles the engines and stores wired into the server.
type Dependencies struct {
	Repo       domain.Repository
	Cache      domain.Cache
	Bus        domain.EventBus
	Engine     *rules.Engine
	Profiles   *rules.ProfileEngine
	Calculator *trust.Calculator
	Decay      *decay.Engine
	Analyzer   *patterns.Analyzer
	Scorer     *decision.ConfidenceScorer
	Pipeline   *fraud.Pipeline
	Alerts     *alerts.Registry
	Limiter    ratelimit.Limiter
	Version    string
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Dependencies) *Server {
	handler := NewHandler(deps.Repo, deps.Cache, deps.Bus, deps.Engine, deps.Profiles, deps.Calculator, deps.Decay, deps.Analyzer, deps.Scorer, deps.Pipeline, deps.Alerts, deps.Version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (tenant required)
	router.Route("/", func(r chi.Router) {
		r.Use(TenantMiddleware)
		if deps.Limiter != nil {
			r.Use(ratelimit.Middleware(deps.Limiter))
		}

		// Trust scoring
		r.Post("/score", handler.ComputeScore)
		r.Get("/scores/{id}", handler.GetScoreEvaluation)
		r.Get("/subjects/{id}/score", handler.GetSubjectScore)

		// Decay and recovery
		r.Post("/score/decay", handler.ApplyDecay)
		r.Post("/score/recovery", handler.ApplyRecovery)
		r.Get("/score/forecast", handler.ForecastDecay)

		// Message analysis
		r.Post("/messages/analyze", handler.AnalyzeMessage)
		r.Post("/conversations/analyze", handler.AnalyzeConversation)

		// Verification decisions
		r.Post("/verification/decide", handler.DecideVerification)

		// Fraud evaluation
		r.Post("/fraud/evaluate", handler.EvaluateFraud)
		r.Get("/fraud/evaluations/{id}", handler.GetFraudEvaluation)

		// Rule management
		r.Get("/rules", handler.ListRules)
		r.Get("/rules/{id}", handler.GetRule)
		r.Post("/rules", handler.CreateRule)
		r.Post("/rules/reload", handler.ReloadRules)

		// Risk profile management
		r.Get("/profiles", handler.ListProfiles)
		r.Get("/profiles/{id}", handler.GetProfile)
		r.Post("/profiles", handler.CreateProfile)
		r.Put("/profiles/{id}", handler.UpdateProfile)
		r.Delete("/profiles/{id}", handler.DeleteProfile)
		r.Post("/profiles/reload", handler.ReloadProfiles)

		// Alert management
		r.Get("/alerts", handler.ListAlerts)
		r.Get("/alerts/history", handler.AlertHistory)
		r.Get("/alerts/stats", handler.AlertStats)
		r.Post("/alerts/{id}/resolve", handler.ResolveAlert)
		r.Get("/subjects/{id}/alerts", handler.SubjectAlerts)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
