package thumbs

import (
	"container/list"
	"image"
	"sync"

	"scan-gallery/internal/metrics"
)

// Default cache bounds: these bound decoded in-memory footprint, not disk
// usage.
const (
	DefaultMaxCost    = 50 * 1000 * 1000
	DefaultMaxEntries = 200
)

// Cache is a bounded in-memory LRU cache mapping an item location to its
// decoded thumbnail. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	order   *list.List               // front = most recently used
	entries map[string]*list.Element

	cost       int64
	maxCost    int64
	maxEntries int
}

type cacheEntry struct {
	key  string
	img  image.Image
	cost int64
}

// NewCache creates a cache bounded by total estimated cost and entry count.
// Non-positive bounds select the defaults.
func NewCache(maxCost int64, maxEntries int) *Cache {
	if maxCost <= 0 {
		maxCost = DefaultMaxCost
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		order:      list.New(),
		entries:    make(map[string]*list.Element),
		maxCost:    maxCost,
		maxEntries: maxEntries,
	}
}

// Get returns the cached thumbnail for key. A hit promotes the entry to
// most recently used.
func (c *Cache) Get(key string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	c.order.MoveToFront(el)
	metrics.CacheHitsTotal.Inc()
	return el.Value.(*cacheEntry).img, true
}

// Put inserts or replaces the thumbnail for key. When the insertion would
// exceed either bound, least-recently-used entries other than the one just
// inserted are evicted until both bounds are satisfied. A nil image is
// ignored.
func (c *Cache) Put(key string, img image.Image, cost int64) {
	if img == nil {
		return
	}
	if cost < 0 {
		cost = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		c.cost += cost - entry.cost
		entry.img = img
		entry.cost = cost
		c.order.MoveToFront(el)
	} else {
		el := c.order.PushFront(&cacheEntry{key: key, img: img, cost: cost})
		c.entries[key] = el
		c.cost += cost
	}

	c.evictLocked(key)
	c.publishLocked()
}

// Remove drops the entry for key, if present. Used when an item is deleted.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return
	}
	c.dropLocked(el)
	c.publishLocked()
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cost returns the current total estimated cost.
func (c *Cache) Cost() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cost
}

// evictLocked removes least-recently-used entries until both bounds hold,
// never evicting keep (the entry just inserted).
func (c *Cache) evictLocked(keep string) {
	for len(c.entries) > c.maxEntries || c.cost > c.maxCost {
		el := c.order.Back()
		if el == nil {
			return
		}
		if el.Value.(*cacheEntry).key == keep {
			// only the just-inserted entry remains; both bounds cannot be
			// tightened further without dropping it
			return
		}
		c.dropLocked(el)
		metrics.CacheEvictionsTotal.Inc()
	}
}

func (c *Cache) dropLocked(el *list.Element) {
	entry := el.Value.(*cacheEntry)
	c.order.Remove(el)
	delete(c.entries, entry.key)
	c.cost -= entry.cost
}

func (c *Cache) publishLocked() {
	metrics.CacheResidentBytes.Set(float64(c.cost))
	metrics.CacheEntries.Set(float64(len(c.entries)))
}

// EstimateCost returns the estimated decoded in-memory footprint of an
// image: the actual backing-buffer length when the concrete type exposes
// one, otherwise width x height x 4.
func EstimateCost(img image.Image) int64 {
	switch t := img.(type) {
	case *image.RGBA:
		return int64(len(t.Pix))
	case *image.NRGBA:
		return int64(len(t.Pix))
	case *image.Gray:
		return int64(len(t.Pix))
	case *image.CMYK:
		return int64(len(t.Pix))
	case *image.YCbCr:
		return int64(len(t.Y) + len(t.Cb) + len(t.Cr))
	case nil:
		return 0
	default:
		bounds := img.Bounds()
		return int64(bounds.Dx()) * int64(bounds.Dy()) * 4
	}
}
