// Package mockdata generates synthetic NCRN-style bird observations and loads
// them into a SQL database, for local development and tests.
package mockdata

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	migrate "github.com/rubenv/sql-migrate"
)

// Table is the table created by Migrate.
const Table = "BirdObservations"

// Columns lists the generated columns in table order.
var Columns = []string{
	domain.ColumnAdminUnitCode,
	"Plot_Name",
	domain.ColumnDate,
	domain.ColumnScientificName,
	"Common_Name",
	domain.ColumnCount,
	domain.ColumnTemperature,
	domain.ColumnHumidity,
	domain.ColumnWind,
	domain.ColumnWatchlistStatus,
}

type species struct {
	scientific string
	common     string
	watchlist  bool
}

var speciesPool = []species{
	{"Hylocichla mustelina", "Wood Thrush", true},
	{"Setophaga ruticilla", "American Redstart", false},
	{"Vireo olivaceus", "Red-eyed Vireo", false},
	{"Seiurus aurocapilla", "Ovenbird", false},
	{"Cardinalis cardinalis", "Northern Cardinal", false},
	{"Poecile carolinensis", "Carolina Chickadee", false},
	{"Baeolophus bicolor", "Tufted Titmouse", false},
	{"Melanerpes carolinus", "Red-bellied Woodpecker", false},
	{"Piranga olivacea", "Scarlet Tanager", false},
	{"Helmitheros vermivorum", "Worm-eating Warbler", true},
	{"Setophaga cerulea", "Cerulean Warbler", true},
	{"Thryothorus ludovicianus", "Carolina Wren", false},
}

var adminUnits = []string{"ANTI", "CATO", "CHOH", "GWMP", "HAFE", "MANA", "MONO", "NACE", "PRWI", "ROCR", "WOTR"}

// Options controls Generate.
type Options struct {
	Rows int
	// InvalidRatio is the share of rows given an unusable count or date.
	InvalidRatio float64
	// UnknownRatio is the share of rows with a NULL scientific name.
	UnknownRatio float64
	Seed         uint64
	// Start is the first survey date; surveys span Years seasons from it.
	Start time.Time
	Years int
}

// DefaultOptions returns a small, mostly clean data set.
func DefaultOptions() Options {
	return Options{
		Rows:         500,
		InvalidRatio: 0.05,
		UnknownRatio: 0.02,
		Seed:         1,
		Start:        time.Date(2018, time.May, 1, 0, 0, 0, 0, time.UTC),
		Years:        4,
	}
}

// Generate returns opts.Rows raw records. The same options always produce the same records.
func Generate(opts Options) []domain.RawRecord {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	years := max(opts.Years, 1)

	records := make([]domain.RawRecord, 0, opts.Rows)
	for i := 0; i < opts.Rows; i++ {
		sp := speciesPool[rng.IntN(len(speciesPool))]
		unit := adminUnits[rng.IntN(len(adminUnits))]
		// Surveys run May through July.
		date := opts.Start.AddDate(rng.IntN(years), 0, rng.IntN(92))

		rec := domain.RawRecord{
			domain.ColumnAdminUnitCode:   domain.Text(unit),
			"Plot_Name":                  domain.Text(fmt.Sprintf("%s-%04d", unit, rng.IntN(300))),
			domain.ColumnDate:            domain.Text(date.Format("2006-01-02")),
			domain.ColumnScientificName:  domain.Text(sp.scientific),
			"Common_Name":                domain.Text(sp.common),
			domain.ColumnCount:           domain.Text(strconv.Itoa(1 + rng.IntN(4))),
			domain.ColumnTemperature:     domain.Text(strconv.FormatFloat(float64(12+rng.IntN(20))+rng.Float64(), 'f', 1, 64)),
			domain.ColumnHumidity:        domain.Text(strconv.FormatFloat(float64(40+rng.IntN(55)), 'f', 0, 64)),
			domain.ColumnWind:            domain.Text(strconv.Itoa(rng.IntN(6))),
			domain.ColumnWatchlistStatus: domain.Text(strings.ToUpper(strconv.FormatBool(sp.watchlist))),
		}

		if rng.Float64() < opts.UnknownRatio {
			rec[domain.ColumnScientificName] = domain.Field{}
		}
		if rng.Float64() < opts.InvalidRatio {
			corrupt(rng, rec)
		}
		records = append(records, rec)
	}
	return records
}

func corrupt(rng *rand.Rand, rec domain.RawRecord) {
	switch rng.IntN(3) {
	case 0:
		rec[domain.ColumnCount] = domain.Text("abc")
	case 1:
		rec[domain.ColumnCount] = domain.Field{}
	default:
		rec[domain.ColumnDate] = domain.Text("not-a-date")
	}
}

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "1_create_bird_observations",
			Up: []string{`CREATE TABLE ` + Table + ` (
				Admin_Unit_Code       TEXT,
				Plot_Name             TEXT,
				Date                  TEXT,
				Scientific_Name       TEXT,
				Common_Name           TEXT,
				Initial_Three_Min_Cnt TEXT,
				Temperature           REAL,
				Humidity              REAL,
				Wind                  REAL,
				PIF_Watchlist_Status  TEXT
			)`},
			Down: []string{`DROP TABLE ` + Table},
		},
	},
}

// Migrate creates the observation table in a SQLite database and returns the
// number of migrations applied.
func Migrate(db *sql.DB) (int, error) {
	n, err := migrate.Exec(db, "sqlite3", migrations, migrate.Up)
	if err != nil {
		return 0, fmt.Errorf("migrate %s: %w", Table, err)
	}
	return n, nil
}

// Insert writes records into the observation table in one transaction.
func Insert(ctx context.Context, db *sql.DB, records []domain.RawRecord) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(Columns)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		Table, strings.Join(Columns, ", "), placeholders))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(Columns))
	for _, rec := range records {
		for i, col := range Columns {
			if f := rec[col]; f.Valid {
				args[i] = f.Value
			} else {
				args[i] = nil
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}
