package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"sort"
	"strconv"
	"time"
)

// Column names of the BirdObservations table.
const (
	ColumnCount           = "Initial_Three_Min_Cnt"
	ColumnDate            = "Date"
	ColumnScientificName  = "Scientific_Name"
	ColumnAdminUnitCode   = "Admin_Unit_Code"
	ColumnTemperature     = "Temperature"
	ColumnHumidity        = "Humidity"
	ColumnWind            = "Wind"
	ColumnWatchlistStatus = "PIF_Watchlist_Status"
)

// Columns derived by Clean. They are recomputed on every pass and never
// carried over from the raw table.
const (
	ColumnObservationCount = "ObservationCount"
	ColumnYear             = "Year"
	ColumnMonth            = "Month"
)

// UnknownSpecies replaces a missing scientific name.
const UnknownSpecies = "Unknown"

// EnvironmentalColumns lists the optional numeric weather columns in the
// order they are reported.
var EnvironmentalColumns = []string{ColumnTemperature, ColumnHumidity, ColumnWind}

// Field is a nullable text value read from the store.
type Field struct {
	Value string
	Valid bool
}

// Text returns a valid Field holding s.
func Text(s string) Field {
	return Field{Value: s, Valid: true}
}

// MarshalJSON encodes an invalid field as null.
func (f Field) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// UnmarshalJSON decodes null as an invalid field.
func (f *Field) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Field{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = Text(s)
	return nil
}

// RawRecord is one row of the raw table keyed by column name. A column
// absent from the map is treated the same as a NULL value.
type RawRecord map[string]Field

// RawTable is the unprocessed result of the store query.
type RawTable struct {
	Columns []string
	Rows    []RawRecord
}

// Observation is a cleaned bird observation.
type Observation struct {
	ObservationCount float64   `json:"observation_count"`
	Date             time.Time `json:"date"`
	Year             int       `json:"year"`
	Month            int       `json:"month"`
	ScientificName   string    `json:"scientific_name"`
	AdminUnitCode    string    `json:"admin_unit_code"`

	// Environmental readings are nil when the column is absent or the value
	// is not numeric.
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Wind        *float64 `json:"wind,omitempty"`

	WatchlistStatus Field `json:"pif_watchlist_status"`

	// Attributes holds every raw column except the derived ones, with Date
	// and Scientific_Name in their cleaned form.
	Attributes RawRecord `json:"attributes,omitempty"`
}

// Environmental returns the reading for one of EnvironmentalColumns.
func (o Observation) Environmental(column string) (float64, bool) {
	var v *float64
	switch column {
	case ColumnTemperature:
		v = o.Temperature
	case ColumnHumidity:
		v = o.Humidity
	case ColumnWind:
		v = o.Wind
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// ID returns a deterministic identifier derived from the observation's
// attributes, so re-publishing the same table yields the same keys.
func (o Observation) ID() string {
	keys := make([]string, 0, len(o.Attributes))
	for k := range o.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		f := o.Attributes[k]
		h.Write([]byte(k))
		if f.Valid {
			h.Write([]byte{'='})
			h.Write([]byte(f.Value))
		}
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return "obs-" + hex.EncodeToString(sum[:8])
}

// DropReport counts the rows removed by each cleaning filter.
type DropReport struct {
	Raw          int `json:"raw"`
	Kept         int `json:"kept"`
	InvalidCount int `json:"invalid_count"`
	InvalidDate  int `json:"invalid_date"`
}

// Dropped returns the total number of discarded rows.
func (r DropReport) Dropped() int {
	return r.InvalidCount + r.InvalidDate
}

// Table is the cleaned, immutable observation table shared by all consumers.
type Table struct {
	Columns      []string
	Observations []Observation
	Report       DropReport
}

// Len returns the number of cleaned rows.
func (t *Table) Len() int {
	return len(t.Observations)
}

// HasColumn reports whether the raw table carried the named column.
func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// AvailableEnvironmentalColumns returns the EnvironmentalColumns present in the table.
func (t *Table) AvailableEnvironmentalColumns() []string {
	var cols []string
	for _, c := range EnvironmentalColumns {
		if t.HasColumn(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// Raw converts the cleaned table back into a raw table, including the
// derived columns. Clean(t.Raw()) reproduces t's observations.
func (t *Table) Raw() RawTable {
	cols := slices.Clone(t.Columns)
	for _, c := range []string{ColumnObservationCount, ColumnYear, ColumnMonth} {
		if !slices.Contains(cols, c) {
			cols = append(cols, c)
		}
	}

	rows := make([]RawRecord, len(t.Observations))
	for i, o := range t.Observations {
		rec := make(RawRecord, len(o.Attributes)+3)
		for k, v := range o.Attributes {
			rec[k] = v
		}
		rec[ColumnObservationCount] = Text(strconv.FormatFloat(o.ObservationCount, 'f', -1, 64))
		rec[ColumnYear] = Text(strconv.Itoa(o.Year))
		rec[ColumnMonth] = Text(strconv.Itoa(o.Month))
		rows[i] = rec
	}
	return RawTable{Columns: cols, Rows: rows}
}
