package analysis

import (
	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
)

// Summary holds the headline metrics of the dashboard.
type Summary struct {
	TotalRecords      int               `json:"total_records"`
	TotalObservations float64           `json:"total_observations"`
	UniqueSpecies     int               `json:"unique_species"`
	FirstDate         string            `json:"first_date,omitempty"`
	LastDate          string            `json:"last_date,omitempty"`
	FirstYear         int               `json:"first_year,omitempty"`
	LastYear          int               `json:"last_year,omitempty"`
	Report            domain.DropReport `json:"drop_report"`
}

// Summarize computes the headline metrics. Date and year ranges are left
// empty for an empty table.
func Summarize(t *domain.Table) Summary {
	s := Summary{
		TotalRecords:      t.Len(),
		TotalObservations: sum(observationCounts(t)),
		Report:            t.Report,
	}
	if t.Len() == 0 {
		return s
	}

	species := make(map[string]struct{})
	first, last := t.Observations[0].Date, t.Observations[0].Date
	for _, obs := range t.Observations {
		species[obs.ScientificName] = struct{}{}
		if obs.Date.Before(first) {
			first = obs.Date
		}
		if obs.Date.After(last) {
			last = obs.Date
		}
	}

	s.UniqueSpecies = len(species)
	s.FirstDate = first.Format("2006-01-02")
	s.LastDate = last.Format("2006-01-02")
	s.FirstYear = first.Year()
	s.LastYear = last.Year()
	return s
}
