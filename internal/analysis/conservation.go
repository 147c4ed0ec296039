package analysis

import (
	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
)

// Hotspots returns the n admin units with the largest summed counts. Rows
// without an admin unit are ignored.
func Hotspots(t *domain.Table, n int) []Total {
	return head(totals(t, func(obs domain.Observation) (string, bool) {
		f := obs.Attributes[domain.ColumnAdminUnitCode]
		return f.Value, f.Valid
	}), n)
}

// WatchlistDistribution counts rows per PIF watchlist status. NULL statuses
// are not counted.
func WatchlistDistribution(t *domain.Table) ([]ValueCount, error) {
	if !t.HasColumn(domain.ColumnWatchlistStatus) {
		return nil, ErrColumnMissing
	}
	return valueCounts(t, func(obs domain.Observation) (string, bool) {
		return obs.WatchlistStatus.Value, obs.WatchlistStatus.Valid
	}), nil
}
