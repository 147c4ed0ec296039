package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/couchcryptid/bird-observation-dashboard/internal/config"
	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Source reads the raw observation table from a relational store.
// It implements pipeline.Extractor.
type Source struct {
	driver         string
	dsn            string
	query          string
	connectTimeout time.Duration
	logger         *slog.Logger
}

// NewSource creates a Source for the configured driver, DSN and table.
func NewSource(cfg *config.Config, logger *slog.Logger) (*Source, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	query, err := selectAll(cfg.DBDriver, cfg.DBTable)
	if err != nil {
		return nil, err
	}
	return &Source{
		driver:         cfg.DBDriver,
		dsn:            dsn,
		query:          query,
		connectTimeout: cfg.DBConnectTimeout,
		logger:         logger,
	}, nil
}

// Fetch opens a connection, runs the select-all query and returns every row.
// The connection is released on every return path. Failure to reach the
// store is reported as a *domain.ConnectionError.
func (s *Source) Fetch(ctx context.Context) (domain.RawTable, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return domain.RawTable{}, &domain.ConnectionError{Driver: s.driver, Err: err}
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return domain.RawTable{}, &domain.ConnectionError{Driver: s.driver, Err: err}
	}

	start := time.Now()
	rows, err := db.QueryContext(ctx, s.query)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	table, err := scanRows(rows)
	if err != nil {
		return domain.RawTable{}, err
	}

	s.logger.Debug("observations fetched",
		"driver", s.driver,
		"rows", len(table.Rows),
		"columns", len(table.Columns),
		"duration", time.Since(start),
	)
	return table, nil
}

func scanRows(rows *sql.Rows) (domain.RawTable, error) {
	cols, err := rows.Columns()
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("read columns: %w", err)
	}

	table := domain.RawTable{Columns: cols}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return domain.RawTable{}, fmt.Errorf("scan observation row: %w", err)
		}
		rec := make(domain.RawRecord, len(cols))
		for i, col := range cols {
			rec[col] = toField(values[i])
		}
		table.Rows = append(table.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return domain.RawTable{}, fmt.Errorf("iterate observation rows: %w", err)
	}
	return table, nil
}

// toField renders whatever the driver returned as nullable text.
func toField(v any) domain.Field {
	switch x := v.(type) {
	case nil:
		return domain.Field{}
	case []byte:
		return domain.Text(string(x))
	case string:
		return domain.Text(x)
	case int64:
		return domain.Text(strconv.FormatInt(x, 10))
	case float64:
		return domain.Text(strconv.FormatFloat(x, 'f', -1, 64))
	case bool:
		return domain.Text(strconv.FormatBool(x))
	case time.Time:
		if x.Equal(x.Truncate(24*time.Hour)) && x.Location() == time.UTC {
			return domain.Text(x.Format("2006-01-02"))
		}
		return domain.Text(x.Format(time.RFC3339Nano))
	default:
		return domain.Text(fmt.Sprint(x))
	}
}

// selectAll builds the fixed query with the table name quoted for the dialect.
func selectAll(driver, table string) (string, error) {
	if !tableNameRe.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}

	switch driver {
	case config.DriverMySQL:
		return "SELECT * FROM `" + table + "`", nil
	default:
		return `SELECT * FROM "` + table + `"`, nil
	}
}
