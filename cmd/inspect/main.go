// Command inspect loads the observation table once, runs the cleaning
// pipeline and reports data-quality checks and headline metrics. It exits
// non-zero when the store is unreachable or a check fails.
//
// Usage:
//
//	DB_DRIVER=sqlite DB_NAME=data/birds.db go run ./cmd/inspect -max-drop-ratio 0.1
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/bird-observation-dashboard/internal/adapter/sqlstore"
	"github.com/couchcryptid/bird-observation-dashboard/internal/analysis"
	"github.com/couchcryptid/bird-observation-dashboard/internal/config"
	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	"github.com/couchcryptid/bird-observation-dashboard/internal/observability"
)

// phase tracks pass/fail for a check.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	maxDropRatio := flag.Float64("max-drop-ratio", 1, "fail when more than this share of rows is dropped")
	verbose := flag.Bool("v", false, "log at the configured level instead of discarding logs")
	flag.Parse()

	os.Exit(run(context.Background(), os.Stdout, *maxDropRatio, *verbose))
}

func run(ctx context.Context, out io.Writer, maxDropRatio float64, verbose bool) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = observability.NewLogger(cfg)
	}

	source, err := sqlstore.NewSource(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	raw, err := source.Fetch(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrConnection) {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: fetch observations: %v\n", err)
		}
		return 1
	}

	return report(out, raw, maxDropRatio)
}

func report(out io.Writer, raw domain.RawTable, maxDropRatio float64) int {
	table := domain.Clean(raw)

	fmt.Fprintln(out, "=== Bird Observation Data Inspection ===")
	fmt.Fprintln(out)

	phases := []*phase{
		checkSchema(raw),
		checkCleaning(table),
		checkDropRatio(table.Report, maxDropRatio),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	r := table.Report
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rows: %d raw, %d kept, %d dropped (%d invalid count, %d invalid date)\n",
		r.Raw, r.Kept, r.Dropped(), r.InvalidCount, r.InvalidDate)

	s := analysis.Summarize(table)
	if s.TotalRecords > 0 {
		fmt.Fprintf(out, "Date range: %s to %s\n", s.FirstDate, s.LastDate)
		fmt.Fprintf(out, "Total observations: %.0f\n", s.TotalObservations)
		fmt.Fprintf(out, "Unique species: %d\n", s.UniqueSpecies)
		fmt.Fprintf(out, "Data years: %d - %d\n", s.FirstYear, s.LastYear)
	}
	if env := table.AvailableEnvironmentalColumns(); len(env) > 0 {
		fmt.Fprintf(out, "Environmental columns: %v\n", env)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll checks passed.")
		return 0
	}
	fmt.Fprintln(out, "\nInspection FAILED.")
	return 1
}

func checkSchema(raw domain.RawTable) *phase {
	p := &phase{name: "Required columns"}
	present := make(map[string]bool, len(raw.Columns))
	for _, c := range raw.Columns {
		present[c] = true
	}
	for _, c := range []string{domain.ColumnCount, domain.ColumnDate} {
		if !present[c] {
			p.errorf("column %s is missing", c)
		}
	}
	return p
}

func checkCleaning(t *domain.Table) *phase {
	p := &phase{name: "Cleaning invariants"}
	r := t.Report
	if r.Raw != r.Kept+r.Dropped() {
		p.errorf("raw rows %d != kept %d + dropped %d", r.Raw, r.Kept, r.Dropped())
	}
	if r.Kept != t.Len() {
		p.errorf("report kept %d but table has %d rows", r.Kept, t.Len())
	}
	for i, obs := range t.Observations {
		if obs.Date.IsZero() {
			p.errorf("row %d: missing date", i)
		}
		if obs.Year != obs.Date.Year() || obs.Month != int(obs.Date.Month()) {
			p.errorf("row %d: year/month %d/%d do not match date %s", i, obs.Year, obs.Month, obs.Date.Format("2006-01-02"))
		}
		if !obs.Attributes[domain.ColumnScientificName].Valid {
			p.errorf("row %d: missing scientific name was not replaced", i)
		}
	}
	if again := domain.Clean(t.Raw()); again.Len() != t.Len() {
		p.errorf("re-cleaning changed row count from %d to %d", t.Len(), again.Len())
	}
	return p
}

func checkDropRatio(r domain.DropReport, maxRatio float64) *phase {
	p := &phase{name: fmt.Sprintf("Dropped rows at most %.0f%%", maxRatio*100)}
	if r.Raw == 0 {
		return p
	}
	if ratio := float64(r.Dropped()) / float64(r.Raw); ratio > maxRatio {
		p.errorf("%d of %d rows dropped (%.1f%%)", r.Dropped(), r.Raw, ratio*100)
	}
	return p
}
