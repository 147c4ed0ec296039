package analysis

import (
	"cmp"
	"slices"

	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	"github.com/montanaflynn/stats"
)

// TopSpecies returns the n species with the most observation rows. Ties are
// ordered by name. A negative n returns every species.
func TopSpecies(t *domain.Table, n int) []ValueCount {
	return head(valueCounts(t, speciesKey), n)
}

// YearSpecies is the summed count of one species in one year.
type YearSpecies struct {
	Year         int     `json:"year"`
	Species      string  `json:"species"`
	Observations float64 `json:"observations"`
}

// SpeciesTrend compares yearly totals of the most frequently observed species.
type SpeciesTrend struct {
	// Species lists the selected species, most frequent first.
	Species []string `json:"species"`
	Years   []int    `json:"years"`
	// Totals holds one entry per observed (year, species) pair, ordered by
	// year and then species name.
	Totals []YearSpecies `json:"totals"`
}

// SpeciesByYear selects the n species with the most rows and sums their
// counts per year.
func SpeciesByYear(t *domain.Table, n int) SpeciesTrend {
	top := TopSpecies(t, n)
	trend := SpeciesTrend{Species: make([]string, len(top))}
	selected := make(map[string]bool, len(top))
	for i, vc := range top {
		trend.Species[i] = vc.Value
		selected[vc.Value] = true
	}

	type key struct {
		year    int
		species string
	}
	groups := make(map[key]stats.Float64Data)
	for _, obs := range t.Observations {
		if !selected[obs.ScientificName] {
			continue
		}
		k := key{obs.Year, obs.ScientificName}
		groups[k] = append(groups[k], obs.ObservationCount)
	}

	years := make(map[int]struct{})
	trend.Totals = make([]YearSpecies, 0, len(groups))
	for k, counts := range groups {
		years[k.year] = struct{}{}
		trend.Totals = append(trend.Totals, YearSpecies{Year: k.year, Species: k.species, Observations: sum(counts)})
	}
	slices.SortFunc(trend.Totals, func(a, b YearSpecies) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return cmp.Compare(a.Species, b.Species)
	})

	trend.Years = make([]int, 0, len(years))
	for y := range years {
		trend.Years = append(trend.Years, y)
	}
	slices.Sort(trend.Years)
	return trend
}

func speciesKey(obs domain.Observation) (string, bool) {
	return obs.ScientificName, true
}
