package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing the Date column.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339Nano,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"20060102",
	"January 2, 2006",
	"Jan 2, 2006",
	"02-Jan-2006",
	"2-Jan-2006",
}

// Clean turns a raw table into the cleaned observation table. Rows whose
// count or date cannot be parsed are dropped and tallied in the report;
// Clean never fails, and an empty raw table yields an empty table.
func Clean(raw RawTable) *Table {
	t := &Table{
		Columns:      dataColumns(raw.Columns),
		Observations: make([]Observation, 0, len(raw.Rows)),
	}
	t.Report.Raw = len(raw.Rows)

	for _, row := range raw.Rows {
		count, ok := parseCount(row[ColumnCount])
		if !ok {
			t.Report.InvalidCount++
			continue
		}
		date, ok := parseDate(row[ColumnDate])
		if !ok {
			t.Report.InvalidDate++
			continue
		}
		t.Observations = append(t.Observations, newObservation(row, count, date))
	}

	t.Report.Kept = len(t.Observations)
	return t
}

func newObservation(row RawRecord, count float64, date time.Time) Observation {
	name := row[ColumnScientificName]
	if !name.Valid {
		name = Text(UnknownSpecies)
	}

	attrs := make(RawRecord, len(row))
	for k, v := range row {
		if isDerived(k) {
			continue
		}
		attrs[k] = v
	}
	attrs[ColumnDate] = Text(formatDate(date))
	attrs[ColumnScientificName] = name

	return Observation{
		ObservationCount: count,
		Date:             date,
		Year:             date.Year(),
		Month:            int(date.Month()),
		ScientificName:   name.Value,
		AdminUnitCode:    row[ColumnAdminUnitCode].Value,
		Temperature:      parseReading(row[ColumnTemperature]),
		Humidity:         parseReading(row[ColumnHumidity]),
		Wind:             parseReading(row[ColumnWind]),
		WatchlistStatus:  row[ColumnWatchlistStatus],
		Attributes:       attrs,
	}
}

// parseCount parses the raw three-minute count. NULL, blank, non-numeric,
// NaN and infinite values are all missing.
func parseCount(f Field) (float64, bool) {
	if !f.Valid {
		return 0, false
	}
	s := strings.TrimSpace(f.Value)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseDate parses a date in any of dateLayouts. A UTC offset is dropped and
// the wall-clock reading kept, so Year and Month match the recorded local date.
func parseDate(f Field) (time.Time, bool) {
	if !f.Valid {
		return time.Time{}, false
	}
	s := strings.TrimSpace(f.Value)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return wallClock(t), true
		}
	}
	return time.Time{}, false
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// formatDate renders a date so that parseDate reads it back unchanged.
func formatDate(t time.Time) string {
	if t.Equal(t.Truncate(24 * time.Hour)) {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339Nano)
}

func parseReading(f Field) *float64 {
	v, ok := parseCount(f)
	if !ok {
		return nil
	}
	return &v
}

func dataColumns(cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if !isDerived(c) {
			out = append(out, c)
		}
	}
	return out
}

func isDerived(col string) bool {
	switch col {
	case ColumnObservationCount, ColumnYear, ColumnMonth:
		return true
	default:
		return false
	}
}
