package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/bird-observation-dashboard/internal/pipeline"
	"github.com/couchcryptid/bird-observation-dashboard/internal/render"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DatasetProvider supplies the cleaned observation table.
type DatasetProvider interface {
	Get(ctx context.Context) (pipeline.Snapshot, error)
	Refresh(ctx context.Context) (pipeline.Snapshot, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the dashboard API, rendered charts, and the health,
// readiness and metrics endpoints.
type Server struct {
	httpServer *http.Server
	data       DatasetProvider
	charts     render.ChartRenderer
	logger     *slog.Logger
}

// NewServer creates an HTTP server with every dashboard route registered.
func NewServer(addr string, data DatasetProvider, charts render.ChartRenderer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		data:   data,
		charts: charts,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(data))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/overview/species", s.handleTopSpecies)
	mux.HandleFunc("GET /api/trends/heatmap", s.handleHeatmap)
	mux.HandleFunc("GET /api/trends/species", s.handleSpeciesByYear)
	mux.HandleFunc("GET /api/environment/correlation", s.handleCorrelation)
	mux.HandleFunc("GET /api/environment/factor", s.handleFactor)
	mux.HandleFunc("GET /api/conservation/hotspots", s.handleHotspots)
	mux.HandleFunc("GET /api/conservation/watchlist", s.handleWatchlist)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /charts/{name}", s.handleChart)

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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
