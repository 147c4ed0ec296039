// Package analysis computes the dashboard aggregations over a cleaned
// observation table. Every function is pure and safe to call concurrently on
// a shared table.
package analysis

import (
	"cmp"
	"errors"
	"slices"

	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	"github.com/montanaflynn/stats"
)

// Default and maximum limits for the ranked aggregations.
const (
	DefaultTopSpecies   = 10
	DefaultTrendSpecies = 20
	MaxTrendSpecies     = 50
	DefaultHotspots     = 10
)

var (
	// ErrColumnMissing is returned when an optional column the aggregation
	// depends on is absent from the table.
	ErrColumnMissing = errors.New("column not present in observation table")

	// ErrNoEnvironmentalData is returned when none of the environmental
	// columns are present.
	ErrNoEnvironmentalData = errors.New("no environmental columns present")

	// ErrUnknownFactor is returned for a factor outside domain.EnvironmentalColumns.
	ErrUnknownFactor = errors.New("unknown environmental factor")
)

// ValueCount is the number of rows carrying a value.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Total is the summed observation count for a key.
type Total struct {
	Key          string  `json:"key"`
	Observations float64 `json:"observations"`
}

// valueCounts counts rows per key, ordered by count descending and then key
// ascending. Rows for which key reports false are skipped.
func valueCounts(t *domain.Table, key func(domain.Observation) (string, bool)) []ValueCount {
	counts := make(map[string]int)
	for _, obs := range t.Observations {
		if k, ok := key(obs); ok {
			counts[k]++
		}
	}

	out := make([]ValueCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, ValueCount{Value: k, Count: n})
	}
	slices.SortFunc(out, func(a, b ValueCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return out
}

// totals sums observation counts per key, ordered by sum descending and then
// key ascending.
func totals(t *domain.Table, key func(domain.Observation) (string, bool)) []Total {
	groups := make(map[string]stats.Float64Data)
	for _, obs := range t.Observations {
		if k, ok := key(obs); ok {
			groups[k] = append(groups[k], obs.ObservationCount)
		}
	}

	out := make([]Total, 0, len(groups))
	for k, counts := range groups {
		out = append(out, Total{Key: k, Observations: sum(counts)})
	}
	slices.SortFunc(out, func(a, b Total) int {
		if c := cmp.Compare(b.Observations, a.Observations); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}

// sum returns the sum of data, and zero for empty input.
func sum(data stats.Float64Data) float64 {
	if len(data) == 0 {
		return 0
	}
	s, err := stats.Sum(data)
	if err != nil {
		return 0
	}
	return s
}

func observationCounts(t *domain.Table) stats.Float64Data {
	data := make(stats.Float64Data, len(t.Observations))
	for i, obs := range t.Observations {
		data[i] = obs.ObservationCount
	}
	return data
}

func head[S ~[]E, E any](s S, n int) S {
	if n < 0 || n >= len(s) {
		return s
	}
	return s[:n]
}
