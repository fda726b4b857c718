package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"codeplay/internal/config"
	"codeplay/internal/monitor"
	"codeplay/internal/proxy"
	"codeplay/internal/sandbox"
	"codeplay/internal/storage"
)

// Server is the HTTP front of the execution proxy.
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
	cfg        *config.Config
	db         *storage.DB
	startTime  time.Time
	stopLimit  func()
}

// NewServer creates and configures the HTTP server with all routes and
// middleware. db and auditWriter may be nil.
func NewServer(cfg *config.Config, backend sandbox.Backend, db *storage.DB, auditWriter *storage.AuditWriter, metrics *monitor.Metrics, proxyOpts ...proxy.Option) (*Server, error) {
	var audit AuditReader
	if db != nil {
		audit = db
	}

	runtimes, err := proxy.New(cfg.Sandbox.URL, proxyOpts...)
	if err != nil {
		return nil, fmt.Errorf("building runtime proxy: %w", err)
	}

	s := &Server{
		handlers:  NewHandlers(backend, cfg.Sandbox.Limits, audit, auditWriter, metrics),
		cfg:       cfg,
		db:        db,
		startTime: time.Now(),
	}

	r := chi.NewRouter()

	// outermost first
	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(SecurityHeadersMiddleware)
	r.Use(CORSMiddleware(cfg.Security.AllowedOrigins))
	r.Use(MaxBodyMiddleware(cfg.Server.MaxRequestBody))
	r.Use(MetricsMiddleware(metrics))

	r.Get("/health", s.handleHealth)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	rateLimit, stopLimit := RateLimitMiddleware(cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow, metrics)
	s.stopLimit = stopLimit

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Security.AllowedKeys, cfg.Security.APIKeyHeader))
		r.With(rateLimit).Post("/execute", s.handlers.HandleExecute)
		r.Handle("/runtimes", runtimes)
		r.Get("/executions", s.handlers.HandleListExecutions)
		r.Get("/executions/{id}", s.handlers.HandleGetExecution)
	})

	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests. Uses TLS if configured.
func (s *Server) Start() error {
	if s.cfg.TLS.Enabled {
		log.Info().
			Str("addr", s.httpServer.Addr).
			Str("cert", s.cfg.TLS.CertFile).
			Msg("starting HTTPS server with TLS")

		s.httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		return s.httpServer.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	}

	log.Info().
		Str("addr", s.httpServer.Addr).
		Msg("starting HTTP server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down HTTP server")
	defer s.Close()
	return s.httpServer.Shutdown(ctx)
}

// Close stops background work owned by the server without touching the
// listener. Safe to call more than once.
func (s *Server) Close() {
	s.stopLimit()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	}

	status := http.StatusOK
	if s.db != nil {
		ok := s.db.Healthy(r.Context())
		resp.Database = &ok
		if !ok {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}
