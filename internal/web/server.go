package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/hostdiag/internal/config"
	"github.com/hugo-lorenzo-mato/hostdiag/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/hostdiag/internal/logging"
	"github.com/hugo-lorenzo-mato/hostdiag/internal/secrets"
)

// SnapshotBuilder produces a fresh diagnostics snapshot.
type SnapshotBuilder interface {
	Build(ctx context.Context) (*diagnostics.Snapshot, error)
}

// SecretFetcher produces a snapshot with the configured secret merged in.
type SecretFetcher interface {
	Fetch(ctx context.Context, cfg config.SecretsConfig) (*diagnostics.Snapshot, error)
}

// MetricsCollector reports host-wide statistics.
type MetricsCollector interface {
	Collect() diagnostics.SystemMetrics
}

// Server represents the HTTP server for the diagnostics pages and API.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	config     Config
	logger     *logging.Logger
	pages      map[string]*template.Template

	builder SnapshotBuilder
	fetcher SecretFetcher
	metrics MetricsCollector
	secrets atomic.Pointer[config.SecretsConfig]
}

// Config holds the server configuration.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	EnableCORS      bool
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:            config.DefaultHost,
		Port:            config.DefaultPort,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    config.DefaultRequestTimeout + 5*time.Second,
		IdleTimeout:     60 * time.Second,
		RequestTimeout:  config.DefaultRequestTimeout,
		ShutdownTimeout: config.DefaultShutdownTimeout,
	}
}

// ConfigFrom derives a server configuration from the application settings.
func ConfigFrom(sc config.ServerConfig) Config {
	cfg := DefaultConfig()
	if sc.Host != "" {
		cfg.Host = sc.Host
	}
	if sc.Port != 0 {
		cfg.Port = sc.Port
	}
	cfg.RequestTimeout = sc.RequestTimeoutDuration()
	cfg.ShutdownTimeout = sc.ShutdownTimeoutDuration()
	if cfg.WriteTimeout <= cfg.RequestTimeout {
		cfg.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	}
	cfg.EnableCORS = sc.EnableCORS
	cfg.CORSOrigins = sc.CORSOrigins
	return cfg
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithBuilder sets the snapshot builder used by the index routes.
func WithBuilder(b SnapshotBuilder) ServerOption {
	return func(s *Server) {
		s.builder = b
	}
}

// WithFetcher sets the secret fetcher used by the secret routes.
func WithFetcher(f SecretFetcher) ServerOption {
	return func(s *Server) {
		s.fetcher = f
	}
}

// WithMetrics sets the host metrics collector.
func WithMetrics(m MetricsCollector) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithSecrets sets the initial secret store settings.
func WithSecrets(cfg config.SecretsConfig) ServerOption {
	return func(s *Server) {
		s.secrets.Store(&cfg)
	}
}

// New creates a new Server instance with the given configuration.
func New(cfg Config, logger *logging.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Server{
		config: cfg,
		logger: logger.WithComponent("web"),
		pages:  mustParsePages(),
	}
	s.secrets.Store(&config.SecretsConfig{Provider: config.ProviderAzure})

	for _, opt := range opts {
		opt(s)
	}

	if s.builder == nil {
		s.builder = diagnostics.NewBuilder()
	}
	if s.fetcher == nil {
		s.fetcher = secrets.NewFetcher(s.builder, secrets.WithLogger(logger))
	}
	if s.metrics == nil {
		s.metrics = diagnostics.NewSystemMetricsCollector()
	}

	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return s
}

// UpdateSecrets swaps the secret store settings used by later requests.
func (s *Server) UpdateSecrets(cfg config.SecretsConfig) {
	s.secrets.Store(&cfg)
	s.logger.Info("secret settings updated",
		slog.String("provider", cfg.Provider),
		slog.String("secret", cfg.SecretName))
}

// setupRouter configures the Chi router with middleware and routes.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}

	if s.config.EnableCORS {
		corsMiddleware := cors.New(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		})
		r.Use(corsMiddleware.Handler)
	}

	r.Get("/health", s.handleHealth)

	// Pages
	r.Get("/", s.handleIndex)
	r.Get("/secret", s.handleSecret)
	r.Get("/privacy", s.handlePrivacy)
	r.Get("/error", s.handleError)
	r.Handle("/static/*", http.StripPrefix("/static/", StaticHandler()))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleAPIRoot)
		r.Get("/snapshot", s.handleAPISnapshot)
		r.Get("/secret", s.handleAPISecret)
		r.Get("/system", s.handleAPISystem)
	})

	return r
}

// loggingMiddleware logs HTTP requests using structured logging.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("remote_addr", r.RemoteAddr),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting http server",
		slog.String("addr", s.httpServer.Addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Router returns the underlying chi router for route registration.
func (s *Server) Router() chi.Router {
	return s.router
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
