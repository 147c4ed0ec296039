package render

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/couchcryptid/bird-observation-dashboard/internal/analysis"
	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	pieSize   = 640
	barWidth  = 1024
	barHeight = 512
)

func provider(format string) chart.RendererProvider {
	if format == FormatSVG {
		return chart.SVG
	}
	return chart.PNG
}

func speciesPie(t *domain.Table, req Request) ([]byte, error) {
	top := analysis.TopSpecies(t, req.N)
	values := make([]chart.Value, len(top))
	for i, vc := range top {
		values[i] = chart.Value{Label: vc.Value, Value: float64(vc.Count)}
	}
	return renderPie(fmt.Sprintf("Top %d Species", req.N), values, req.Format)
}

func watchlistPie(t *domain.Table, req Request) ([]byte, error) {
	dist, err := analysis.WatchlistDistribution(t)
	if err != nil {
		return nil, err
	}
	values := make([]chart.Value, len(dist))
	for i, vc := range dist {
		values[i] = chart.Value{
			Label: vc.Value,
			Value: float64(vc.Count),
			Style: chart.Style{FillColor: watchlistColor(vc.Value), StrokeColor: drawing.ColorWhite},
		}
	}
	return renderPie("Species by PIF Watchlist Status", values, req.Format)
}

func watchlistColor(status string) drawing.Color {
	if on, err := strconv.ParseBool(status); err == nil && on {
		return drawing.ColorRed
	}
	return drawing.Color{R: 240, G: 200, B: 40, A: 255}
}

func hotspotsBar(t *domain.Table, req Request) ([]byte, error) {
	spots := analysis.Hotspots(t, req.N)
	bars := make([]chart.Value, len(spots))
	for i, s := range spots {
		bars[i] = chart.Value{Label: s.Key, Value: s.Observations}
	}
	if !anyPositive(bars) {
		return nil, ErrNoData
	}

	c := chart.BarChart{
		Title:      "Top Observation Areas",
		Width:      barWidth,
		Height:     barHeight,
		BarWidth:   48,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		YAxis:      chart.YAxis{Name: "Observations", Range: barRange(bars)},
		Bars:       bars,
	}

	var buf bytes.Buffer
	if err := c.Render(provider(req.Format), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// barRange anchors the Y axis at zero. go-chart rejects a range derived from
// bars that all share one height.
func barRange(bars []chart.Value) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, b := range bars {
		lo = min(lo, b.Value)
		hi = max(hi, b.Value)
	}
	return &chart.ContinuousRange{Min: lo, Max: max(hi, lo+1)}
}

func renderPie(title string, values []chart.Value, format string) ([]byte, error) {
	if !anyPositive(values) {
		return nil, ErrNoData
	}

	c := chart.PieChart{
		Title:  title,
		Width:  pieSize,
		Height: pieSize,
		Values: values,
	}

	var buf bytes.Buffer
	if err := c.Render(provider(format), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func anyPositive(values []chart.Value) bool {
	for _, v := range values {
		if v.Value > 0 {
			return true
		}
	}
	return false
}
