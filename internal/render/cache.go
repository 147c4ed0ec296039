package render

import (
	"time"

	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	"github.com/couchcryptid/bird-observation-dashboard/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ChartRenderer draws a chart for one version of the table.
type ChartRenderer interface {
	Render(t *domain.Table, loadedAt time.Time, req Request) (Image, error)
}

// CachedRenderer wraps a ChartRenderer with an in-memory LRU cache. Entries
// are keyed by the normalized request and the table's load time, so a
// reloaded table never serves images drawn from the previous one.
type CachedRenderer struct {
	inner   ChartRenderer
	cache   *lru.Cache[cacheKey, Image]
	metrics *observability.Metrics
}

// cacheKey identifies one image: a normalized request against one table version.
type cacheKey struct {
	req      Request
	loadedAt int64
}

// NewCachedRenderer creates a cache decorator around a renderer holding at
// most maxEntries images (minimum 1).
func NewCachedRenderer(inner ChartRenderer, maxEntries int, metrics *observability.Metrics) *CachedRenderer {
	cache, _ := lru.New[cacheKey, Image](max(maxEntries, 1)) // only fails for a non-positive size
	return &CachedRenderer{
		inner:   inner,
		cache:   cache,
		metrics: metrics,
	}
}

func (c *CachedRenderer) Render(t *domain.Table, loadedAt time.Time, req Request) (Image, error) {
	req, err := req.Normalize(t)
	if err != nil {
		return Image{}, err
	}

	key := cacheKey{req: req, loadedAt: loadedAt.UnixNano()}
	if img, ok := c.cache.Get(key); ok {
		c.metrics.RenderCache.WithLabelValues("hit").Inc()
		return img, nil
	}
	c.metrics.RenderCache.WithLabelValues("miss").Inc()

	start := time.Now()
	img, err := c.inner.Render(t, loadedAt, req)
	if err != nil {
		return img, err
	}
	c.metrics.RenderDuration.WithLabelValues(req.Chart).Observe(time.Since(start).Seconds())
	c.cache.Add(key, img)
	return img, nil
}
