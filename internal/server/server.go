// Package server provides the HTTP server and routing for the portfolio manager.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-manager/internal/config"
	"github.com/aristath/portfolio-manager/internal/di"
	bankinghandlers "github.com/aristath/portfolio-manager/internal/modules/banking/handlers"
	chatbothandlers "github.com/aristath/portfolio-manager/internal/modules/chatbot/handlers"
	markethandlers "github.com/aristath/portfolio-manager/internal/modules/market/handlers"
	portfoliohandlers "github.com/aristath/portfolio-manager/internal/modules/portfolio/handlers"
	riskhandlers "github.com/aristath/portfolio-manager/internal/modules/risk/handlers"
	universehandlers "github.com/aristath/portfolio-manager/internal/modules/universe/handlers"
	usershandlers "github.com/aristath/portfolio-manager/internal/modules/users/handlers"
)

const (
	requestTimeout = 60 * time.Second
	// room for a handler that hits requestTimeout to still write its 503
	writeTimeout = requestTimeout + 15*time.Second
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container // DI container with all services
}

// Server represents the HTTP server
type Server struct {
	router      *chi.Mux
	server      *http.Server
	log         zerolog.Logger
	cfg         *config.Config
	container   *di.Container
	metrics     *Metrics
	startupTime time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		cfg:         cfg.Config,
		container:   cfg.Container,
		metrics:     NewMetrics("portfolio_manager"),
		startupTime: time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router exposes the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware configures middleware shared by every route
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.metrics.Middleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes mounts the probes at the root and every API under /api.
// The chat socket sits outside the request timeout because it is long lived.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	chat := chatbothandlers.NewHandler(s.container.ChatbotService, s.websocketOrigins(), s.log)

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			s.protect(r)
			chat.RegisterStreamRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			s.mountPublic(r)

			r.Group(func(r chi.Router) {
				s.protect(r)
				s.mountUserScoped(r, chat)
			})
		})
	})
}

// mountPublic registers routes that never need a token
func (s *Server) mountPublic(r chi.Router) {
	c := s.container

	r.Get("/health", s.handleHealth)
	r.Get("/system/status", s.handleSystemStatus)
	usershandlers.NewHandler(c.UserService, s.log).RegisterAuthRoutes(r)
	universehandlers.NewHandler(c.UniverseService, s.log).RegisterRoutes(r)
	markethandlers.NewHandler(c.NewsService, s.log).RegisterRoutes(r)
}

// mountUserScoped registers routes guarded by REQUIRE_AUTH
func (s *Server) mountUserScoped(r chi.Router, chat *chatbothandlers.Handler) {
	c := s.container

	usershandlers.NewHandler(c.UserService, s.log).RegisterRoutes(r)
	bankinghandlers.NewHandler(c.BankingService, s.log).RegisterRoutes(r)
	portfoliohandlers.NewHandler(c.PortfolioService, s.log).RegisterRoutes(r)
	riskhandlers.NewHandler(c.RiskService, s.log).RegisterRoutes(r)
	chat.RegisterRoutes(r)
	r.Post("/system/jobs/{name}/run", s.handleRunJob)
}

// protect adds token checks to r when REQUIRE_AUTH is set
func (s *Server) protect(r chi.Router) {
	if s.cfg.Auth.RequireAuth {
		r.Use(RequireToken(s.container.TokenManager, s.log))
	}
}

func (s *Server) websocketOrigins() []string {
	if s.cfg.DevMode {
		return []string{"*"}
	}
	return nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs one line per request. Server errors log at error,
// client errors at warn, and probe traffic only at debug.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		var ev *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			ev = s.log.Error()
		case status >= http.StatusBadRequest:
			ev = s.log.Warn()
		case r.URL.Path == "/health" || r.URL.Path == "/metrics":
			ev = s.log.Debug()
		default:
			ev = s.log.Info()
		}

		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(started)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
