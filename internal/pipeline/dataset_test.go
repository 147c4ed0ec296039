package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	"github.com/couchcryptid/bird-observation-dashboard/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDataset(t *testing.T, ext *mockExtractor, clock clockwork.Clock, ttl time.Duration) *pipeline.Dataset {
	t.Helper()
	metrics := newTestMetrics()
	loader := pipeline.NewLoader(ext, nil, clock, slog.Default(), metrics)
	return pipeline.NewDataset(loader, clock, ttl, slog.Default(), metrics)
}

func TestDataset_GetMemoizes(t *testing.T) {
	ext := &mockExtractor{table: sampleRaw()}
	ds := newDataset(t, ext, clockwork.NewFakeClock(), 0)

	first, err := ds.Get(context.Background())
	require.NoError(t, err)
	second, err := ds.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, ext.Calls())
	assert.Same(t, first.Table, second.Table)
	assert.Equal(t, first.LoadedAt, second.LoadedAt)
}

func TestDataset_InvalidateForcesOneReload(t *testing.T) {
	ext := &mockExtractor{table: sampleRaw()}
	ds := newDataset(t, ext, clockwork.NewFakeClock(), 0)

	_, err := ds.Get(context.Background())
	require.NoError(t, err)

	ds.Invalidate()
	_, ok := ds.LoadedAt()
	assert.False(t, ok)

	for range 3 {
		_, err := ds.Get(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, ext.Calls())
}

func TestDataset_ErrorsAreNotCached(t *testing.T) {
	ext := &mockExtractor{err: &domain.ConnectionError{Driver: "mysql", Err: errors.New("refused")}}
	ds := newDataset(t, ext, clockwork.NewFakeClock(), 0)

	_, err := ds.Get(context.Background())
	require.ErrorIs(t, err, domain.ErrConnection)
	require.Error(t, ds.CheckReadiness(context.Background()))

	ext.mu.Lock()
	ext.err = nil
	ext.table = sampleRaw()
	ext.mu.Unlock()

	snap, err := ds.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Table.Len())
	assert.Equal(t, 2, ext.Calls())
	assert.NoError(t, ds.CheckReadiness(context.Background()))
}

func TestDataset_TTLExpiry(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	ext := &mockExtractor{table: sampleRaw()}
	ds := newDataset(t, ext, clock, 10*time.Minute)

	first, err := ds.Get(context.Background())
	require.NoError(t, err)

	clock.Advance(9 * time.Minute)
	_, err = ds.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ext.Calls())

	clock.Advance(2 * time.Minute)
	second, err := ds.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ext.Calls())
	assert.True(t, second.LoadedAt.After(first.LoadedAt))
}

func TestDataset_ZeroTTLNeverExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ext := &mockExtractor{table: sampleRaw()}
	ds := newDataset(t, ext, clock, 0)

	_, err := ds.Get(context.Background())
	require.NoError(t, err)
	clock.Advance(365 * 24 * time.Hour)
	_, err = ds.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, ext.Calls())
}

func TestDataset_ConcurrentGetLoadsOnce(t *testing.T) {
	ext := &mockExtractor{table: sampleRaw()}
	ds := newDataset(t, ext, clockwork.NewFakeClock(), 0)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ds.Get(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ext.Calls())
}

func TestDataset_Refresh(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	ext := &mockExtractor{table: sampleRaw()}
	ds := newDataset(t, ext, clock, 0)

	first, err := ds.Get(context.Background())
	require.NoError(t, err)

	clock.Advance(time.Minute)
	second, err := ds.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, ext.Calls())
	assert.Equal(t, first.LoadedAt.Add(time.Minute), second.LoadedAt)

	loadedAt, ok := ds.LoadedAt()
	require.True(t, ok)
	assert.Equal(t, second.LoadedAt, loadedAt)
}

func TestDataset_MetricsTrackCache(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	ext := &mockExtractor{table: sampleRaw()}
	metrics := newTestMetrics()
	loader := pipeline.NewLoader(ext, nil, clock, slog.Default(), metrics)
	ds := pipeline.NewDataset(loader, clock, 0, slog.Default(), metrics)

	_, err := ds.Get(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.CachedRows), 0)
	assert.InDelta(t, float64(clock.Now().Unix()), testutil.ToFloat64(metrics.DatasetLoadedAt), 0)

	ds.Invalidate()
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.CachedRows), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.DatasetLoadedAt), 0)
}

// slowExtractor advances the fake clock while fetching.
type slowExtractor struct {
	mockExtractor
	clock *clockwork.FakeClock
	delay time.Duration
}

func (s *slowExtractor) Fetch(ctx context.Context) (domain.RawTable, error) {
	s.clock.Advance(s.delay)
	return s.mockExtractor.Fetch(ctx)
}

func TestDataset_LoadedAtMatchesPublishedTimestamp(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	ext := &slowExtractor{mockExtractor: mockExtractor{table: sampleRaw()}, clock: clock, delay: 3 * time.Second}
	pub := &mockPublisher{}
	metrics := newTestMetrics()

	loader := pipeline.NewLoader(ext, pub, clock, slog.Default(), metrics)
	ds := pipeline.NewDataset(loader, clock, 0, slog.Default(), metrics)

	snap, err := ds.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.loadedAt, 1)
	assert.Equal(t, pub.loadedAt[0], snap.LoadedAt)
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 3, 0, time.UTC), snap.LoadedAt)

	loadedAt, ok := ds.LoadedAt()
	require.True(t, ok)
	assert.Equal(t, pub.loadedAt[0], loadedAt)
}
