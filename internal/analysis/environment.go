package analysis

import (
	"fmt"
	"math"
	"slices"

	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	"github.com/montanaflynn/stats"
)

// CorrelationMatrix holds pairwise Pearson coefficients. A nil cell means the
// coefficient is undefined for that pair.
type CorrelationMatrix struct {
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

// At returns the coefficient between columns i and j.
func (m CorrelationMatrix) At(i, j int) (float64, bool) {
	if v := m.Values[i][j]; v != nil {
		return *v, true
	}
	return 0, false
}

// Correlation computes the correlation matrix among the environmental columns
// present in the table and ObservationCount. Each pair uses only the rows
// where both values are present.
func Correlation(t *domain.Table) (CorrelationMatrix, error) {
	env := t.AvailableEnvironmentalColumns()
	if len(env) == 0 {
		return CorrelationMatrix{}, ErrNoEnvironmentalData
	}

	cols := append(slices.Clone(env), domain.ColumnObservationCount)
	m := CorrelationMatrix{Columns: cols, Values: make([][]*float64, len(cols))}
	for i := range cols {
		m.Values[i] = make([]*float64, len(cols))
	}

	for i := range cols {
		for j := i; j < len(cols); j++ {
			x, y := pairs(t, cols[i], cols[j])
			if r, ok := pearson(x, y); ok {
				m.Values[i][j] = &r
				m.Values[j][i] = &r
			}
		}
	}
	return m, nil
}

// FactorPoint is one observation plotted against an environmental factor.
type FactorPoint struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Species string  `json:"species"`
}

// Trendline is an ordinary least squares fit y = Slope*x + Intercept.
type Trendline struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	N         int     `json:"n"`
}

// At evaluates the trendline at x.
func (l Trendline) At(x float64) float64 {
	return l.Slope*x + l.Intercept
}

// FactorAnalysis plots ObservationCount against one environmental factor.
type FactorAnalysis struct {
	Factor string        `json:"factor"`
	Points []FactorPoint `json:"points"`
	// Trend is the fit over every point; nil when it is undefined.
	Trend *Trendline `json:"trend,omitempty"`
	// SpeciesTrends holds per-species fits for species with a defined fit.
	SpeciesTrends map[string]Trendline `json:"species_trends,omitempty"`
}

// FactorSeries returns the points and OLS trendlines for factor versus
// ObservationCount. Rows without a reading for the factor are skipped.
func FactorSeries(t *domain.Table, factor string) (FactorAnalysis, error) {
	if !slices.Contains(domain.EnvironmentalColumns, factor) {
		return FactorAnalysis{}, fmt.Errorf("%w %q", ErrUnknownFactor, factor)
	}
	if !t.HasColumn(factor) {
		return FactorAnalysis{}, fmt.Errorf("%s: %w", factor, ErrColumnMissing)
	}

	fa := FactorAnalysis{Factor: factor, Points: []FactorPoint{}}
	var xs, ys stats.Float64Data
	bySpecies := make(map[string][2]stats.Float64Data)
	for _, obs := range t.Observations {
		x, ok := obs.Environmental(factor)
		if !ok {
			continue
		}
		fa.Points = append(fa.Points, FactorPoint{X: x, Y: obs.ObservationCount, Species: obs.ScientificName})
		xs = append(xs, x)
		ys = append(ys, obs.ObservationCount)

		s := bySpecies[obs.ScientificName]
		s[0] = append(s[0], x)
		s[1] = append(s[1], obs.ObservationCount)
		bySpecies[obs.ScientificName] = s
	}

	if l, ok := ols(xs, ys); ok {
		fa.Trend = &l
	}
	for species, s := range bySpecies {
		if l, ok := ols(s[0], s[1]); ok {
			if fa.SpeciesTrends == nil {
				fa.SpeciesTrends = make(map[string]Trendline)
			}
			fa.SpeciesTrends[species] = l
		}
	}
	return fa, nil
}

// pairs returns the values of two columns over rows where both are present.
func pairs(t *domain.Table, a, b string) (stats.Float64Data, stats.Float64Data) {
	var x, y stats.Float64Data
	for _, obs := range t.Observations {
		va, ok := value(obs, a)
		if !ok {
			continue
		}
		vb, ok := value(obs, b)
		if !ok {
			continue
		}
		x = append(x, va)
		y = append(y, vb)
	}
	return x, y
}

func value(obs domain.Observation, column string) (float64, bool) {
	if column == domain.ColumnObservationCount {
		return obs.ObservationCount, true
	}
	return obs.Environmental(column)
}

// pearson is undefined for fewer than two pairs or when either side is constant.
func pearson(x, y stats.Float64Data) (float64, bool) {
	if len(x) < 2 || !varies(x) || !varies(y) {
		return 0, false
	}
	r, err := stats.Correlation(x, y)
	if err != nil || math.IsNaN(r) {
		return 0, false
	}
	return clamp(r), true
}

// ols fits y on x; it is undefined for fewer than two points or constant x.
func ols(x, y stats.Float64Data) (Trendline, bool) {
	if len(x) < 2 || !varies(x) {
		return Trendline{}, false
	}
	cov, err := stats.Covariance(x, y)
	if err != nil {
		return Trendline{}, false
	}
	variance, err := stats.SampleVariance(x)
	if err != nil || variance == 0 {
		return Trendline{}, false
	}
	meanX, _ := stats.Mean(x)
	meanY, _ := stats.Mean(y)

	slope := cov / variance
	return Trendline{Slope: slope, Intercept: meanY - slope*meanX, N: len(x)}, true
}

func varies(data stats.Float64Data) bool {
	lo, err := stats.Min(data)
	if err != nil {
		return false
	}
	hi, _ := stats.Max(data)
	return hi > lo
}

// clamp keeps rounding noise from pushing a coefficient outside [-1, 1].
func clamp(r float64) float64 {
	return math.Max(-1, math.Min(1, r))
}
