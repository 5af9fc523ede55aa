// Package api provides the HTTP API server and handlers for ippi.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ippiapp/ippi-server/internal/metrics"
	"github.com/ippiapp/ippi-server/internal/validation"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP surface.
type Options struct {
	// AllowDevTokens enables POST /api/v1/auth/token. Never set in production.
	AllowDevTokens bool

	// RequestsPerMinute limits each client IP across the API.
	RequestsPerMinute int
	// AuthRequestsPerMinute limits each client IP on the token endpoint.
	AuthRequestsPerMinute int

	// MetricsPath mounts the metrics handler when non-empty.
	MetricsPath string

	CORSAllowedOrigins []string

	// TrustProxyHeaders keys rate limits on X-Forwarded-For / X-Real-IP instead of
	// the connection address. Those headers are client-controlled unless a proxy
	// in front rewrites them, so leave this off when the server is exposed directly.
	TrustProxyHeaders bool
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services        *Services
	db              Pinger
	router          *chi.Mux
	api             huma.API
	validator       *validation.Validator
	metrics         metrics.Recorder
	opts            Options
	logger          *slog.Logger
	apiRateLimiter  *RateLimiter
	authRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, db Pinger, rec metrics.Recorder, opts Options, logger *slog.Logger) *Server {
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 60
	}
	if opts.AuthRequestsPerMinute <= 0 {
		opts.AuthRequestsPerMinute = 5
	}

	s := &Server{
		services:        services,
		db:              db,
		router:          chi.NewRouter(),
		validator:       validation.New(),
		metrics:         rec,
		opts:            opts,
		logger:          logger,
		apiRateLimiter:  NewRateLimiter(opts.RequestsPerMinute),
		authRateLimiter: NewRateLimiter(opts.AuthRequestsPerMinute),
	}

	// chi requires every middleware before the first route, and humachi.New adds the docs routes.
	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("ippi API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests.
func (s *Server) API() huma.API {
	return s.api
}

// Stop releases background resources held by the server.
func (s *Server) Stop() {
	s.apiRateLimiter.Stop()
	s.authRateLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	if s.opts.TrustProxyHeaders {
		s.router.Use(middleware.RealIP)
	}
	s.router.Use(correlationMiddleware)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{correlationHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(metrics.Middleware(s.metrics))
	s.router.Use(RateLimitMiddleware(s.apiRateLimiter, s.opts.TrustProxyHeaders, s.logger))
	s.router.Use(authMiddleware(s.services.Tokens, s.logger))
}

func (s *Server) corsOrigins() []string {
	if len(s.opts.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.opts.CORSAllowedOrigins
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerStatsRoutes()
	s.registerAchievementRoutes()
	s.registerActivityRoutes()
	s.registerFollowRoutes()
	s.registerReactionRoutes()
	s.registerUserRoutes()

	if s.opts.MetricsPath != "" {
		s.router.Handle(s.opts.MetricsPath, s.metrics.Handler())
	}
}
