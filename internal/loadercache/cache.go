// Package loadercache maps loader keys to compiled vertex loaders. Entries
// live until ClearAll; there is no eviction because the key space is bounded
// by the register widths.
package loadercache

import (
	"context"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gxvtx/gxvtx/internal/logger"
	"github.com/gxvtx/gxvtx/internal/stats"
	"github.com/gxvtx/gxvtx/internal/vertexloader"
)

// Options configures a Cache. The zero value is usable.
type Options struct {
	Logger logger.Logger
	// Stats, if set, counts inserted loaders in NumVertexLoaders.
	Stats *stats.Stats
	// Build constructs a loader on a miss. Defaults to vertexloader.New.
	Build func(vertexloader.Key, *vertexloader.FormatCache) *vertexloader.Loader
}

// Cache is safe for concurrent use. Loaders are built outside the lock; when
// two goroutines miss on the same key, the first insert wins and the other
// result is discarded.
type Cache struct {
	log     logger.Logger
	stats   *stats.Stats
	build   func(vertexloader.Key, *vertexloader.FormatCache) *vertexloader.Loader
	formats *vertexloader.FormatCache

	mu      sync.Mutex
	loaders map[vertexloader.Key]*vertexloader.Loader
}

// New returns an empty cache with its own format cache.
func New(opts Options) *Cache {
	c := &Cache{
		log:     opts.Logger,
		stats:   opts.Stats,
		build:   opts.Build,
		formats: vertexloader.NewFormatCache(),
		loaders: make(map[vertexloader.Key]*vertexloader.Loader),
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if c.build == nil {
		c.build = vertexloader.New
	}
	return c
}

func (c *Cache) lookup(key vertexloader.Key) (*vertexloader.Loader, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.loaders[key]
	return l, ok
}

// GetOrCreate returns the loader for key, building it on first use.
func (c *Cache) GetOrCreate(key vertexloader.Key) *vertexloader.Loader {
	if l, ok := c.lookup(key); ok {
		return l
	}

	built := c.build(key, c.formats)

	c.mu.Lock()
	if existing, ok := c.loaders[key]; ok {
		c.mu.Unlock()
		return existing
	}
	c.loaders[key] = built
	n := len(c.loaders)
	c.mu.Unlock()

	if c.stats != nil {
		c.stats.NumVertexLoaders.Add(1)
	}
	c.log.Debug("vertex loader created",
		"key", key.String(),
		"vertex_size", built.VertexSize(),
		"format", built.NativeFormat().ID,
		"loaders", n,
	)
	return built
}

// Prefetch builds loaders for keys on up to workers goroutines.
func (c *Cache) Prefetch(ctx context.Context, keys []vertexloader.Key, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.GetOrCreate(key)
			return nil
		})
	}
	return g.Wait()
}

// ClearAll drops every loader and the native format cache. Only call it at
// teardown: slots still pointing at old loaders keep using them.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	n := len(c.loaders)
	clear(c.loaders)
	c.mu.Unlock()
	c.formats.Clear()
	c.log.Info("vertex loader cache cleared", "loaders", n)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.loaders)
}

// Formats returns the shared native format cache.
func (c *Cache) Formats() *vertexloader.FormatCache { return c.formats }

// List returns the cached loaders, most-used first. Ties are ordered by key
// hash so the result is deterministic within a process.
func (c *Cache) List() []*vertexloader.Loader {
	c.mu.Lock()
	out := make([]*vertexloader.Loader, 0, len(c.loaders))
	for _, l := range c.loaders {
		out = append(out, l)
	}
	c.mu.Unlock()

	slices.SortFunc(out, func(a, b *vertexloader.Loader) int {
		na, nb := a.NumLoadedVerts(), b.NumLoadedVerts()
		switch {
		case na > nb:
			return -1
		case na < nb:
			return 1
		}
		ha, hb := a.Key().Hash(), b.Key().Hash()
		switch {
		case ha < hb:
			return -1
		case ha > hb:
			return 1
		}
		return 0
	})
	return out
}

// AppendListToString writes one line per loader in List order.
func (c *Cache) AppendListToString(sb *strings.Builder) {
	for _, l := range c.List() {
		l.AppendToString(sb)
	}
}
