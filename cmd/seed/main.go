// Command seed creates a SQLite observation store filled with synthetic
// NCRN-style bird observations, for running the dashboard without access to
// the production database.
//
// Usage:
//
//	go run ./cmd/seed -db data/birds.db -rows 2000
//	DB_DRIVER=sqlite DB_NAME=data/birds.db go run ./cmd/dashboard
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	"github.com/couchcryptid/bird-observation-dashboard/internal/mockdata"

	_ "modernc.org/sqlite"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	defaults := mockdata.DefaultOptions()

	dbPath := flag.String("db", "birds.db", "path of the SQLite database to create or extend")
	rows := flag.Int("rows", defaults.Rows, "number of observation rows to insert")
	seed := flag.Uint64("seed", defaults.Seed, "random seed; the same seed yields the same rows")
	invalid := flag.Float64("invalid-ratio", defaults.InvalidRatio, "share of rows with an unusable count or date")
	unknown := flag.Float64("unknown-ratio", defaults.UnknownRatio, "share of rows without a scientific name")
	start := flag.String("start", defaults.Start.Format("2006-01-02"), "first survey date")
	years := flag.Int("years", defaults.Years, "number of survey seasons")
	flag.Parse()

	if *rows < 0 || *invalid < 0 || *invalid > 1 || *unknown < 0 || *unknown > 1 {
		flag.Usage()
		return fmt.Errorf("rows must be non-negative and ratios within [0, 1]")
	}
	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}

	if dir := filepath.Dir(*dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", *dbPath, err)
	}
	defer db.Close()

	applied, err := mockdata.Migrate(db)
	if err != nil {
		return err
	}
	log.Printf("applied %d migrations", applied)

	records := mockdata.Generate(mockdata.Options{
		Rows:         *rows,
		InvalidRatio: *invalid,
		UnknownRatio: *unknown,
		Seed:         *seed,
		Start:        startDate,
		Years:        *years,
	})
	if err := mockdata.Insert(context.Background(), db, records); err != nil {
		return err
	}
	log.Printf("inserted %d rows into %s (%s)", len(records), mockdata.Table, *dbPath)

	table := domain.Clean(domain.RawTable{Columns: mockdata.Columns, Rows: records})
	r := table.Report
	log.Printf("expected after cleaning: %d kept, %d invalid count, %d invalid date", r.Kept, r.InvalidCount, r.InvalidDate)
	return nil
}
