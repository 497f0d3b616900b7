package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Peterstangolis/ontschoolsapp/internal/domain"
	"github.com/Peterstangolis/ontschoolsapp/internal/render"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DashboardService builds the dashboard and reports readiness.
type DashboardService interface {
	sharedobs.ReadinessChecker
	Build(ctx context.Context) (domain.Dashboard, error)
}

// Server serves the dashboard page plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        DashboardService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, svc DashboardService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// A cold page load downloads both datasets.
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Build(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := render.Page(&buf, d, s.logger); err != nil {
		s.writeError(w, err)
		return
	}
	writeHTML(w, http.StatusOK, buf.Bytes())
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, heading := describe(err)
	s.logger.Warn("dashboard unavailable", "status", status, "error", err)

	var buf bytes.Buffer
	if rerr := render.ErrorPage(&buf, heading, err.Error()); rerr != nil {
		s.logger.Error("render error page failed", "error", rerr)
		http.Error(w, heading, status)
		return
	}
	writeHTML(w, status, buf.Bytes())
}

// describe maps a build error to a response status and a page heading.
func describe(err error) (int, string) {
	var (
		fetchErr *domain.FetchError
		parseErr *domain.ParseError
		dataErr  *domain.DataSufficiencyError
	)
	switch {
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, "The Ontario data catalogue could not be reached"
	case errors.As(err, &parseErr):
		return http.StatusBadGateway, "The published data could not be read"
	case errors.As(err, &dataErr):
		return http.StatusServiceUnavailable, "Not enough data has been published yet"
	default:
		return http.StatusInternalServerError, "The dashboard could not be built"
	}
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write(body) //nolint:errcheck // client may have gone away
}
