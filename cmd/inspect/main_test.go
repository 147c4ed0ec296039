package main

import (
	"bytes"
	"testing"

	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	"github.com/couchcryptid/bird-observation-dashboard/internal/mockdata"
	"github.com/stretchr/testify/assert"
)

func TestReport_GeneratedDataPasses(t *testing.T) {
	raw := domain.RawTable{Columns: mockdata.Columns, Rows: mockdata.Generate(mockdata.DefaultOptions())}

	var out bytes.Buffer
	code := report(&out, raw, 1)

	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "All checks passed.")
	assert.Contains(t, out.String(), "Unique species:")
	assert.Contains(t, out.String(), "Environmental columns: [Temperature Humidity Wind]")
}

func TestReport_MissingColumnsFail(t *testing.T) {
	raw := domain.RawTable{
		Columns: []string{domain.ColumnScientificName},
		Rows:    []domain.RawRecord{{domain.ColumnScientificName: domain.Text("Sitta carolinensis")}},
	}

	var out bytes.Buffer
	code := report(&out, raw, 1)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "column Initial_Three_Min_Cnt is missing")
	assert.Contains(t, out.String(), "column Date is missing")
	assert.Contains(t, out.String(), "Inspection FAILED.")
}

func TestReport_DropRatioExceeded(t *testing.T) {
	raw := domain.RawTable{
		Columns: []string{domain.ColumnDate, domain.ColumnCount},
		Rows: []domain.RawRecord{
			{domain.ColumnDate: domain.Text("2020-05-01"), domain.ColumnCount: domain.Text("2")},
			{domain.ColumnDate: domain.Text("2020-05-01"), domain.ColumnCount: domain.Text("n/a")},
		},
	}

	var out bytes.Buffer
	code := report(&out, raw, 0.25)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "1 of 2 rows dropped (50.0%)")
}

func TestCheckCleaning_EmptyTable(t *testing.T) {
	p := checkCleaning(domain.Clean(domain.RawTable{}))
	assert.True(t, p.passed())
}
