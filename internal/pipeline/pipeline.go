package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	"github.com/couchcryptid/bird-observation-dashboard/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Extractor reads the complete raw observation table from the store.
type Extractor interface {
	Fetch(ctx context.Context) (domain.RawTable, error)
}

// Publisher forwards a freshly cleaned table to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, table *domain.Table, loadedAt time.Time) error
}

// Loader runs one fetch-clean-publish cycle.
type Loader struct {
	extractor Extractor
	publisher Publisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewLoader creates a Loader. publisher may be nil, in which case cleaned
// tables are not forwarded anywhere.
func NewLoader(e Extractor, p Publisher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loader{
		extractor: e,
		publisher: p,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Load fetches the raw table, cleans it and publishes the result. The
// snapshot's LoadedAt is the timestamp the publisher stamps on its messages.
// A publish failure is logged and counted but does not fail the load.
func (l *Loader) Load(ctx context.Context) (Snapshot, error) {
	start := l.clock.Now()

	raw, err := l.extractor.Fetch(ctx)
	if err != nil {
		l.metrics.LoadErrors.WithLabelValues(errorKind(err)).Inc()
		l.logger.Error("fetch observations failed", "error", err)
		return Snapshot{}, err
	}
	l.metrics.RowsFetched.Add(float64(len(raw.Rows)))

	table := domain.Clean(raw)
	report := table.Report
	l.metrics.RowsDropped.WithLabelValues("invalid_count").Add(float64(report.InvalidCount))
	l.metrics.RowsDropped.WithLabelValues("invalid_date").Add(float64(report.InvalidDate))

	l.logger.Info("observations cleaned",
		"raw_rows", report.Raw,
		"kept_rows", report.Kept,
		"invalid_count", report.InvalidCount,
		"invalid_date", report.InvalidDate,
	)

	snap := Snapshot{Table: table, LoadedAt: l.clock.Now()}

	if l.publisher != nil && table.Len() > 0 {
		if err := l.publisher.Publish(ctx, table, snap.LoadedAt); err != nil {
			l.metrics.PublishErrors.Inc()
			l.logger.Error("publish snapshot failed", "error", err, "rows", table.Len())
		} else {
			l.metrics.MessagesPublished.Add(float64(table.Len()))
		}
	}

	l.metrics.LoadsTotal.Inc()
	l.metrics.LoadDuration.Observe(l.clock.Since(start).Seconds())
	return snap, nil
}

func errorKind(err error) string {
	if errors.Is(err, domain.ErrConnection) {
		return "connection"
	}
	return "query"
}
