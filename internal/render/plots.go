package render

import (
	"bytes"
	"fmt"
	"image/color"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/bird-observation-dashboard/internal/analysis"
	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// heatmapGrid adapts analysis.Heatmap to plotter.GridXYZ with months on the
// X axis and years on the Y axis.
type heatmapGrid struct {
	h analysis.Heatmap
}

func (g heatmapGrid) Dims() (c, r int) { return len(g.h.Months), len(g.h.Years) }
func (g heatmapGrid) Z(c, r int) float64 { return g.h.Values[r][c] }
func (g heatmapGrid) X(c int) float64 { return float64(g.h.Months[c]) }
func (g heatmapGrid) Y(r int) float64 { return float64(g.h.Years[r]) }
func (g heatmapGrid) label(c, r int) string { return strconv.FormatFloat(g.Z(c, r), 'f', -1, 64) }

func heatmapPlot(t *domain.Table, req Request) ([]byte, error) {
	h := analysis.MonthlyHeatmap(t)
	if len(h.Years) == 0 {
		return nil, ErrNoData
	}
	grid := heatmapGrid{h: h}

	p := plot.New()
	p.Title.Text = "Monthly Observation Patterns"
	p.X.Label.Text = "Month"
	p.Y.Label.Text = "Year"

	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	cols, rows := grid.Dims()
	labels := plotter.XYLabels{
		XYs:    make(plotter.XYs, 0, cols*rows),
		Labels: make([]string, 0, cols*rows),
	}
	for r := range rows {
		for c := range cols {
			labels.XYs = append(labels.XYs, plotter.XY{X: grid.X(c), Y: grid.Y(r)})
			labels.Labels = append(labels.Labels, grid.label(c, r))
		}
	}
	annotations, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, err
	}
	for i := range annotations.TextStyle {
		annotations.TextStyle[i].XAlign = draw.XCenter
		annotations.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(annotations)

	monthTicks := make([]plot.Tick, len(h.Months))
	for i, m := range h.Months {
		monthTicks[i] = plot.Tick{Value: float64(m), Label: time.Month(m).String()[:3]}
	}
	p.X.Tick.Marker = plot.ConstantTicks(monthTicks)

	yearTicks := make([]plot.Tick, len(h.Years))
	for i, y := range h.Years {
		yearTicks[i] = plot.Tick{Value: float64(y), Label: strconv.Itoa(y)}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(yearTicks)

	return encode(p, 12*vg.Inch, vg.Length(2+len(h.Years))*vg.Inch/2+2*vg.Inch, req.Format)
}

func speciesByYearPlot(t *domain.Table, req Request) ([]byte, error) {
	trend := analysis.SpeciesByYear(t, req.N)
	if len(trend.Totals) == 0 {
		return nil, ErrNoData
	}

	yearIndex := make(map[int]int, len(trend.Years))
	for i, y := range trend.Years {
		yearIndex[y] = i
	}
	values := make(map[string]plotter.Values, len(trend.Species))
	for _, s := range trend.Species {
		values[s] = make(plotter.Values, len(trend.Years))
	}
	for _, ys := range trend.Totals {
		values[ys.Species][yearIndex[ys.Year]] = ys.Observations
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Top %d Species Observation Comparison by Year", req.N)
	p.Y.Label.Text = "Observations"
	p.Legend.Top = true

	// Bars for one year sit side by side, one per species.
	groupWidth := vg.Points(360)
	barWidth := groupWidth / vg.Length(len(trend.Species))
	for i, species := range trend.Species {
		bars, err := plotter.NewBarChart(values[species], barWidth)
		if err != nil {
			return nil, err
		}
		bars.LineStyle.Width = 0
		bars.Color = plotutil.Color(i)
		bars.Offset = barWidth*vg.Length(i) - groupWidth/2 + barWidth/2
		p.Add(bars)
		p.Legend.Add(species, bars)
	}

	names := make([]string, len(trend.Years))
	for i, y := range trend.Years {
		names[i] = strconv.Itoa(y)
	}
	p.NominalX(names...)

	width := max(12*vg.Inch, vg.Length(len(trend.Years))*groupWidth*1.25)
	return encode(p, width, 8*vg.Inch, req.Format)
}

func factorPlot(t *domain.Table, req Request) ([]byte, error) {
	if req.Factor == "" {
		return nil, analysis.ErrNoEnvironmentalData
	}
	fa, err := analysis.FactorSeries(t, req.Factor)
	if err != nil {
		return nil, err
	}
	if len(fa.Points) == 0 {
		return nil, ErrNoData
	}

	bySpecies := make(map[string]plotter.XYs)
	minX, maxX := fa.Points[0].X, fa.Points[0].X
	for _, pt := range fa.Points {
		bySpecies[pt.Species] = append(bySpecies[pt.Species], plotter.XY{X: pt.X, Y: pt.Y})
		minX = min(minX, pt.X)
		maxX = max(maxX, pt.X)
	}
	species := make([]string, 0, len(bySpecies))
	for s := range bySpecies {
		species = append(species, s)
	}
	slices.Sort(species)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs Observations", fa.Factor)
	p.X.Label.Text = fa.Factor
	p.Y.Label.Text = "Observation count"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, s := range species {
		sc, err := plotter.NewScatter(bySpecies[s])
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = plotutil.Color(i)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add(s, sc)
	}

	if fa.Trend != nil {
		trend := *fa.Trend
		line := plotter.NewFunction(trend.At)
		line.XMin, line.XMax = minX, maxX
		line.Color = color.Black
		line.Width = vg.Points(2)
		line.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("OLS y = %.3gx + %.3g", trend.Slope, trend.Intercept), line)
	}

	return encode(p, 12*vg.Inch, 8*vg.Inch, req.Format)
}

func encode(p *plot.Plot, w, h vg.Length, format string) ([]byte, error) {
	wt, err := p.WriterTo(w, h, format)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
