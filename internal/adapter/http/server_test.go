package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/bird-observation-dashboard/internal/adapter/http"
	"github.com/couchcryptid/bird-observation-dashboard/internal/analysis"
	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	"github.com/couchcryptid/bird-observation-dashboard/internal/mockdata"
	"github.com/couchcryptid/bird-observation-dashboard/internal/pipeline"
	"github.com/couchcryptid/bird-observation-dashboard/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDataset struct {
	snap         pipeline.Snapshot
	err          error
	refreshCalls int
}

func (m *mockDataset) Get(_ context.Context) (pipeline.Snapshot, error) {
	if m.err != nil {
		return pipeline.Snapshot{}, m.err
	}
	return m.snap, nil
}

func (m *mockDataset) Refresh(ctx context.Context) (pipeline.Snapshot, error) {
	m.refreshCalls++
	return m.Get(ctx)
}

func (m *mockDataset) CheckReadiness(_ context.Context) error {
	if m.err != nil {
		return m.err
	}
	if m.snap.Table == nil {
		return errors.New("dataset has not been loaded")
	}
	return nil
}

var loadedAt = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func generatedSnapshot() pipeline.Snapshot {
	opts := mockdata.DefaultOptions()
	opts.Rows = 150
	table := domain.Clean(domain.RawTable{Columns: mockdata.Columns, Rows: mockdata.Generate(opts)})
	return pipeline.Snapshot{Table: table, LoadedAt: loadedAt}
}

func newTestServer(data *mockDataset) *httpadapter.Server {
	return httpadapter.NewServer(":0", data, render.NewRenderer(), slog.Default())
}

func do(t *testing.T, srv *httpadapter.Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(&mockDataset{})
	rec := do(t, srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenLoaded(t *testing.T) {
	srv := newTestServer(&mockDataset{snap: generatedSnapshot()})
	rec := do(t, srv, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503BeforeFirstLoad(t *testing.T) {
	srv := newTestServer(&mockDataset{})
	rec := do(t, srv, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&mockDataset{})
	rec := do(t, srv, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSummary(t *testing.T) {
	snap := generatedSnapshot()
	srv := newTestServer(&mockDataset{snap: snap})

	rec := do(t, srv, http.MethodGet, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode[map[string]any](t, rec)
	assert.InDelta(t, snap.Table.Len(), body["total_records"], 0)
	assert.Equal(t, "2024-06-01T12:00:00Z", body["loaded_at"])

	report, ok := body["drop_report"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 150, report["raw"], 0)
}

func TestConnectionFailureReturns503(t *testing.T) {
	srv := newTestServer(&mockDataset{err: &domain.ConnectionError{Driver: "mysql", Err: errors.New("connection refused")}})

	for _, target := range []string{"/api/summary", "/api/trends/heatmap", "/charts/species"} {
		rec := do(t, srv, http.MethodGet, target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)

		body := decode[map[string]string](t, rec)
		assert.Contains(t, body["error"], "database unavailable", target)
	}
}

func TestQueryFailureReturns500(t *testing.T) {
	srv := newTestServer(&mockDataset{err: errors.New("query observations: table missing")})
	rec := do(t, srv, http.MethodGet, "/api/summary")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTopSpecies(t *testing.T) {
	srv := newTestServer(&mockDataset{snap: generatedSnapshot()})

	rec := do(t, srv, http.MethodGet, "/api/overview/species")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]analysis.ValueCount](t, rec), 10)

	rec = do(t, srv, http.MethodGet, "/api/overview/species?n=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]analysis.ValueCount](t, rec), 3)
}

func TestBadParametersReturn400(t *testing.T) {
	srv := newTestServer(&mockDataset{snap: generatedSnapshot()})

	for _, target := range []string{
		"/api/overview/species?n=abc",
		"/api/overview/species?n=0",
		"/api/trends/species?top_n=51",
		"/api/conservation/hotspots?n=-1",
		"/api/environment/factor?factor=Pressure",
		"/charts/species?format=gif",
		"/charts/hotspots?n=x",
	} {
		rec := do(t, srv, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHeatmap(t *testing.T) {
	srv := newTestServer(&mockDataset{snap: generatedSnapshot()})

	rec := do(t, srv, http.MethodGet, "/api/trends/heatmap")
	require.Equal(t, http.StatusOK, rec.Code)

	h := decode[analysis.Heatmap](t, rec)
	assert.Len(t, h.Months, 12)
	assert.Len(t, h.Values, len(h.Years))
}

func TestSpeciesByYear(t *testing.T) {
	srv := newTestServer(&mockDataset{snap: generatedSnapshot()})

	rec := do(t, srv, http.MethodGet, "/api/trends/species?top_n=2")
	require.Equal(t, http.StatusOK, rec.Code)

	trend := decode[analysis.SpeciesTrend](t, rec)
	assert.Len(t, trend.Species, 2)
	for _, ys := range trend.Totals {
		assert.Contains(t, trend.Species, ys.Species)
	}
}

func TestEnvironment(t *testing.T) {
	srv := newTestServer(&mockDataset{snap: generatedSnapshot()})

	rec := do(t, srv, http.MethodGet, "/api/environment/correlation")
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode[analysis.CorrelationMatrix](t, rec)
	assert.Equal(t, []string{"Temperature", "Humidity", "Wind", "ObservationCount"}, m.Columns)

	rec = do(t, srv, http.MethodGet, "/api/environment/factor")
	require.Equal(t, http.StatusOK, rec.Code)
	fa := decode[analysis.FactorAnalysis](t, rec)
	assert.Equal(t, "Temperature", fa.Factor)
	assert.NotEmpty(t, fa.Points)

	rec = do(t, srv, http.MethodGet, "/api/environment/factor?factor=Humidity")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Humidity", decode[analysis.FactorAnalysis](t, rec).Factor)
}

func TestMissingColumnsReturn404(t *testing.T) {
	table := domain.Clean(domain.RawTable{
		Columns: []string{domain.ColumnDate, domain.ColumnCount},
		Rows: []domain.RawRecord{
			{domain.ColumnDate: domain.Text("2020-05-01"), domain.ColumnCount: domain.Text("2")},
		},
	})
	srv := newTestServer(&mockDataset{snap: pipeline.Snapshot{Table: table, LoadedAt: loadedAt}})

	for _, target := range []string{
		"/api/environment/correlation",
		"/api/environment/factor",
		"/api/environment/factor?factor=Wind",
		"/api/conservation/watchlist",
		"/charts/watchlist",
	} {
		rec := do(t, srv, http.MethodGet, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.NotEmpty(t, decode[map[string]string](t, rec)["error"], target)
	}
}

func TestConservation(t *testing.T) {
	srv := newTestServer(&mockDataset{snap: generatedSnapshot()})

	rec := do(t, srv, http.MethodGet, "/api/conservation/hotspots")
	require.Equal(t, http.StatusOK, rec.Code)
	spots := decode[[]analysis.Total](t, rec)
	assert.Len(t, spots, 10)

	rec = do(t, srv, http.MethodGet, "/api/conservation/watchlist")
	require.Equal(t, http.StatusOK, rec.Code)
	dist := decode[[]analysis.ValueCount](t, rec)
	require.NotEmpty(t, dist)
	for _, vc := range dist {
		assert.Contains(t, []string{"TRUE", "FALSE"}, vc.Value)
	}
}

func TestChart(t *testing.T) {
	srv := newTestServer(&mockDataset{snap: generatedSnapshot()})

	rec := do(t, srv, http.MethodGet, "/charts/heatmap")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
	assert.Equal(t, loadedAt.Format(http.TimeFormat), rec.Header().Get("Last-Modified"))

	rec = do(t, srv, http.MethodGet, "/charts/hotspots?format=svg&n=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))

	rec = do(t, srv, http.MethodGet, "/charts/radar")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefresh(t *testing.T) {
	data := &mockDataset{snap: generatedSnapshot()}
	srv := newTestServer(data)

	rec := do(t, srv, http.MethodPost, "/api/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, data.refreshCalls)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "refreshed", body["status"])
	assert.InDelta(t, data.snap.Table.Len(), body["rows"], 0)

	rec = do(t, srv, http.MethodGet, "/api/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRefreshConnectionFailure(t *testing.T) {
	data := &mockDataset{err: &domain.ConnectionError{Driver: "postgres", Err: errors.New("timeout")}}
	srv := newTestServer(data)

	rec := do(t, srv, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
