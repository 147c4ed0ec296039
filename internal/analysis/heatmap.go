package analysis

import (
	"slices"

	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
)

// Heatmap is the matrix of summed counts by year (rows) and month (columns).
type Heatmap struct {
	Years  []int `json:"years"`
	Months []int `json:"months"`
	// Values[i][j] is the total for Years[i] and Months[j].
	Values [][]float64 `json:"values"`
}

// MonthlyHeatmap sums counts per (year, month). Every calendar month is
// present and months without observations are zero.
func MonthlyHeatmap(t *domain.Table) Heatmap {
	perYear := make(map[int]*[12]float64)
	for _, obs := range t.Observations {
		row, ok := perYear[obs.Year]
		if !ok {
			row = new([12]float64)
			perYear[obs.Year] = row
		}
		row[obs.Month-1] += obs.ObservationCount
	}

	h := Heatmap{
		Years:  make([]int, 0, len(perYear)),
		Months: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}
	for y := range perYear {
		h.Years = append(h.Years, y)
	}
	slices.Sort(h.Years)

	h.Values = make([][]float64, len(h.Years))
	for i, y := range h.Years {
		h.Values[i] = perYear[y][:]
	}
	return h
}

// Max returns the largest cell value, or zero for an empty heatmap.
func (h Heatmap) Max() float64 {
	var m float64
	for _, row := range h.Values {
		for _, v := range row {
			m = max(m, v)
		}
	}
	return m
}
