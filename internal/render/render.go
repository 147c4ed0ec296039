// Package render draws the dashboard charts as PNG or SVG images.
package render

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/couchcryptid/bird-observation-dashboard/internal/analysis"
	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
)

// Chart names.
const (
	ChartSpecies       = "species"
	ChartHeatmap       = "heatmap"
	ChartSpeciesByYear = "species-by-year"
	ChartFactor        = "factor"
	ChartHotspots      = "hotspots"
	ChartWatchlist     = "watchlist"
)

// Charts lists every chart the renderer can draw.
var Charts = []string{ChartSpecies, ChartHeatmap, ChartSpeciesByYear, ChartFactor, ChartHotspots, ChartWatchlist}

// Output formats.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

var (
	ErrUnknownChart      = errors.New("unknown chart")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrNoData is returned when the table holds nothing to draw.
	ErrNoData = errors.New("no data to plot")
)

// Request selects a chart and its parameters.
type Request struct {
	Chart  string
	Format string
	// N limits the number of species or admin units; zero selects the
	// chart's default.
	N int
	// Factor is the environmental column for the factor chart; empty
	// selects the first available one.
	Factor string
}

// Image is an encoded chart.
type Image struct {
	Data        []byte
	ContentType string
}

// Normalize validates the request and fills in defaults for the given table.
func (r Request) Normalize(t *domain.Table) (Request, error) {
	if !slices.Contains(Charts, r.Chart) {
		return r, fmt.Errorf("%w %q", ErrUnknownChart, r.Chart)
	}
	switch r.Format {
	case "":
		r.Format = FormatPNG
	case FormatPNG, FormatSVG:
	default:
		return r, fmt.Errorf("%w %q", ErrUnsupportedFormat, r.Format)
	}

	switch r.Chart {
	case ChartSpecies:
		r.N = orDefault(r.N, analysis.DefaultTopSpecies)
	case ChartHotspots:
		r.N = orDefault(r.N, analysis.DefaultHotspots)
	case ChartSpeciesByYear:
		r.N = min(orDefault(r.N, analysis.DefaultTrendSpecies), analysis.MaxTrendSpecies)
	case ChartFactor:
		if r.Factor == "" {
			if env := t.AvailableEnvironmentalColumns(); len(env) > 0 {
				r.Factor = env[0]
			}
		}
	}
	if r.Chart != ChartFactor {
		r.Factor = ""
	}
	if r.Chart == ChartHeatmap || r.Chart == ChartWatchlist || r.Chart == ChartFactor {
		r.N = 0
	}
	return r, nil
}

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

// Renderer draws charts straight from a table.
type Renderer struct{}

// NewRenderer creates a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render draws the requested chart. loadedAt is unused by the renderer itself
// and only identifies the table version for caching decorators.
func (r *Renderer) Render(t *domain.Table, _ time.Time, req Request) (Image, error) {
	req, err := req.Normalize(t)
	if err != nil {
		return Image{}, err
	}

	var data []byte
	switch req.Chart {
	case ChartSpecies:
		data, err = speciesPie(t, req)
	case ChartHeatmap:
		data, err = heatmapPlot(t, req)
	case ChartSpeciesByYear:
		data, err = speciesByYearPlot(t, req)
	case ChartFactor:
		data, err = factorPlot(t, req)
	case ChartHotspots:
		data, err = hotspotsBar(t, req)
	case ChartWatchlist:
		data, err = watchlistPie(t, req)
	}
	if err != nil {
		return Image{}, fmt.Errorf("render %s: %w", req.Chart, err)
	}
	return Image{Data: data, ContentType: contentType(req.Format)}, nil
}

func contentType(format string) string {
	if format == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}
