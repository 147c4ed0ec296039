package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	"github.com/couchcryptid/bird-observation-dashboard/internal/observability"
	"github.com/jonboulle/clockwork"
)

// TableLoader produces a cleaned table stamped with its load time.
type TableLoader interface {
	Load(ctx context.Context) (Snapshot, error)
}

// Snapshot is a cleaned table together with the time it was loaded.
type Snapshot struct {
	Table    *domain.Table
	LoadedAt time.Time
}

// Dataset memoizes the cleaned table. The table is loaded on first use and
// served from memory until it is invalidated or, with a positive TTL, until
// it expires. Concurrent callers share a single load.
type Dataset struct {
	loader  TableLoader
	clock   clockwork.Clock
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics

	mu      sync.Mutex // serializes loads
	current atomic.Pointer[Snapshot]
}

// NewDataset creates an empty Dataset. A zero ttl keeps a loaded table for
// the lifetime of the process.
func NewDataset(loader TableLoader, clock clockwork.Clock, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Dataset {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Dataset{
		loader:  loader,
		clock:   clock,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

// Get returns the cached snapshot, loading it if none is cached or the
// cached one has expired. Load errors are returned and not cached.
func (d *Dataset) Get(ctx context.Context) (Snapshot, error) {
	if s := d.current.Load(); d.fresh(s) {
		return *s, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Another caller may have finished a load while we waited.
	if s := d.current.Load(); d.fresh(s) {
		return *s, nil
	}

	snap, err := d.loader.Load(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	s := &snap
	d.current.Store(s)
	d.metrics.CachedRows.Set(float64(s.Table.Len()))
	d.metrics.DatasetLoadedAt.Set(float64(s.LoadedAt.Unix()))
	d.logger.Info("dataset cached", "rows", s.Table.Len(), "loaded_at", s.LoadedAt)
	return *s, nil
}

// Invalidate drops the cached table; the next Get reloads it.
func (d *Dataset) Invalidate() {
	if d.current.Swap(nil) != nil {
		d.logger.Info("dataset invalidated")
	}
	d.metrics.CachedRows.Set(0)
	d.metrics.DatasetLoadedAt.Set(0)
}

// Refresh invalidates the cached table and loads a new one.
func (d *Dataset) Refresh(ctx context.Context) (Snapshot, error) {
	d.Invalidate()
	return d.Get(ctx)
}

// LoadedAt returns when the cached table was loaded, and false if nothing is cached.
func (d *Dataset) LoadedAt() (time.Time, bool) {
	s := d.current.Load()
	if s == nil {
		return time.Time{}, false
	}
	return s.LoadedAt, true
}

// CheckReadiness returns nil once a table is cached.
func (d *Dataset) CheckReadiness(_ context.Context) error {
	if d.current.Load() == nil {
		return errors.New("dataset has not been loaded")
	}
	return nil
}

func (d *Dataset) fresh(s *Snapshot) bool {
	if s == nil {
		return false
	}
	return d.ttl <= 0 || d.clock.Since(s.LoadedAt) < d.ttl
}
