package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/bird-observation-dashboard/internal/analysis"
	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	"github.com/couchcryptid/bird-observation-dashboard/internal/pipeline"
	"github.com/couchcryptid/bird-observation-dashboard/internal/render"
)

var errBadParam = errors.New("invalid parameter")

type summaryResponse struct {
	analysis.Summary
	LoadedAt time.Time `json:"loaded_at"`
}

type refreshResponse struct {
	Status   string    `json:"status"`
	Rows     int       `json:"rows"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Summary: analysis.Summarize(snap.Table), LoadedAt: snap.LoadedAt})
}

func (s *Server) handleTopSpecies(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", analysis.DefaultTopSpecies, 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analysis.TopSpecies(snap.Table, n))
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analysis.MonthlyHeatmap(snap.Table))
}

func (s *Server) handleSpeciesByYear(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "top_n", analysis.DefaultTrendSpecies, analysis.MaxTrendSpecies)
	if err != nil {
		s.writeError(w, err)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analysis.SpeciesByYear(snap.Table, n))
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	m, err := analysis.Correlation(snap.Table)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleFactor(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	factor := r.URL.Query().Get("factor")
	if factor == "" {
		env := snap.Table.AvailableEnvironmentalColumns()
		if len(env) == 0 {
			s.writeError(w, analysis.ErrNoEnvironmentalData)
			return
		}
		factor = env[0]
	}
	fa, err := analysis.FactorSeries(snap.Table, factor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fa)
}

func (s *Server) handleHotspots(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", analysis.DefaultHotspots, 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analysis.Hotspots(snap.Table, n))
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	dist, err := analysis.WatchlistDistribution(snap.Table)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dist)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.data.Refresh(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("dataset refreshed", "rows", snap.Table.Len())
	writeJSON(w, http.StatusOK, refreshResponse{Status: "refreshed", Rows: snap.Table.Len(), LoadedAt: snap.LoadedAt})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, err := intParam(r, "n", 0, 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	req := render.Request{
		Chart:  r.PathValue("name"),
		Format: q.Get("format"),
		N:      n,
		Factor: q.Get("factor"),
	}

	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	img, err := s.charts.Render(snap.Table, snap.LoadedAt, req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Last-Modified", snap.LoadedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write(img.Data) //nolint:errcheck // client may have gone away
}

// snapshot loads the table, writing the error response itself on failure.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (pipeline.Snapshot, bool) {
	snap, err := s.data.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return pipeline.Snapshot{}, false
	}
	return snap, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err, "status", status)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrConnection):
		return http.StatusServiceUnavailable
	case errors.Is(err, analysis.ErrColumnMissing),
		errors.Is(err, analysis.ErrNoEnvironmentalData),
		errors.Is(err, render.ErrUnknownChart),
		errors.Is(err, render.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, errBadParam),
		errors.Is(err, analysis.ErrUnknownFactor),
		errors.Is(err, render.ErrUnsupportedFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// intParam reads a positive integer query parameter. An empty value yields
// def; a positive limit rejects larger values.
func intParam(r *http.Request, name string, def, limit int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadParam, name)
	}
	if limit > 0 && n > limit {
		return 0, fmt.Errorf("%w: %s must be at most %d", errBadParam, name, limit)
	}
	return n, nil
}
