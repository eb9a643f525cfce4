package cache

import (
	"sync"
	"time"

	"container/list"

	"github.com/objectfs/docvfs/pkg/types"
)

// DirCache implements a thread-safe LRU cache over directory listings,
// keyed by (root_key, parent_path). It sits in front of the VFS engine's
// readdir/stat path and is invalidated by every mutating primitive that
// touches a parent directory, within the same TxScope that performed the
// mutation.
type DirCache struct {
	mu          sync.RWMutex
	capacity    int
	items       map[string]*cacheItem
	evictList   *list.List
	config      *Config
	stats       types.CacheStats
}

// Config represents directory-cache configuration.
type Config struct {
	MaxEntries      int           `yaml:"max_entries"`
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultConfig returns sensible defaults for the directory-listing cache.
func DefaultConfig() *Config {
	return &Config{
		MaxEntries:      10000,
		TTL:             30 * time.Second,
		CleanupInterval: time.Minute,
	}
}

// cacheItem represents one cached directory listing.
type cacheItem struct {
	key       string
	entries   []types.DirEntry
	timestamp time.Time
	element   *list.Element
}

// cacheEntry is the value stored in the eviction list, sufficient to look
// the item back up in items without storing a second copy of the payload.
type cacheEntry struct {
	key string
}

// NewDirCache creates a new directory-listing LRU cache.
func NewDirCache(config *Config) *DirCache {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 10000
	}

	c := &DirCache{
		capacity:  config.MaxEntries,
		items:     make(map[string]*cacheItem),
		evictList: list.New(),
		config:    config,
		stats: types.CacheStats{
			Capacity: int64(config.MaxEntries),
		},
	}

	go c.cleanupExpired()

	return c
}

// Get retrieves a cached directory listing for (rootKey, parentPath).
func (c *DirCache) Get(rootKey, parentPath string) ([]types.DirEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := makeCacheKey(rootKey, parentPath)
	item, exists := c.items[key]
	if !exists {
		c.stats.Misses++
		c.updateHitRate()
		return nil, false
	}

	if c.isExpired(item) {
		c.removeItem(key)
		c.stats.Misses++
		c.updateHitRate()
		return nil, false
	}

	c.evictList.MoveToFront(item.element)
	c.stats.Hits++
	c.updateHitRate()

	result := make([]types.DirEntry, len(item.entries))
	copy(result, item.entries)
	return result, true
}

// Put stores a directory listing for (rootKey, parentPath).
func (c *DirCache) Put(rootKey, parentPath string, entries []types.DirEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := makeCacheKey(rootKey, parentPath)
	stored := make([]types.DirEntry, len(entries))
	copy(stored, entries)

	if item, exists := c.items[key]; exists {
		item.entries = stored
		item.timestamp = time.Now()
		c.evictList.MoveToFront(item.element)
		return
	}

	item := &cacheItem{
		key:       key,
		entries:   stored,
		timestamp: time.Now(),
	}
	item.element = c.evictList.PushFront(&cacheEntry{key: key})
	c.items[key] = item

	c.evictIfNeeded()
}

// Invalidate evicts the cached listing for (rootKey, parentPath). Called by
// every mutating VFS primitive (create_file, create_folder, rename,
// delete_file_or_folder, ...) against the parent it mutated.
func (c *DirCache) Invalidate(rootKey, parentPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeItem(makeCacheKey(rootKey, parentPath))
}

// InvalidateRoot evicts every cached listing under a root key, used when an
// entire root (e.g. a deleted user tree) is torn down.
func (c *DirCache) InvalidateRoot(rootKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := rootKey + "\x00"
	var keysToDelete []string
	for key := range c.items {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keysToDelete = append(keysToDelete, key)
		}
	}
	for _, key := range keysToDelete {
		c.removeItem(key)
	}
}

// Size returns the number of cached directory listings.
func (c *DirCache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.items))
}

// Stats returns cache statistics.
func (c *DirCache) Stats() types.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Size = int64(len(c.items))
	if c.capacity > 0 {
		stats.Utilization = float64(len(c.items)) / float64(c.capacity)
	}
	return stats
}

// Clear clears all cached listings.
func (c *DirCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Evictions += uint64(len(c.items))
	c.items = make(map[string]*cacheItem)
	c.evictList.Init()
}

func makeCacheKey(rootKey, parentPath string) string {
	return rootKey + "\x00" + parentPath
}

func (c *DirCache) isExpired(item *cacheItem) bool {
	if c.config.TTL == 0 {
		return false
	}
	return time.Since(item.timestamp) > c.config.TTL
}

func (c *DirCache) removeItem(key string) {
	item, exists := c.items[key]
	if !exists {
		return
	}

	c.evictList.Remove(item.element)
	delete(c.items, key)
	c.stats.Evictions++
}

func (c *DirCache) evictIfNeeded() {
	for len(c.items) > c.capacity && c.evictList.Len() > 0 {
		c.evictOldest()
	}
}

func (c *DirCache) evictOldest() {
	element := c.evictList.Back()
	if element == nil {
		return
	}
	entry := element.Value.(*cacheEntry)
	c.removeItem(entry.key)
}

func (c *DirCache) updateHitRate() {
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		c.stats.HitRate = float64(c.stats.Hits) / float64(total)
	}
}

func (c *DirCache) cleanupExpired() {
	interval := c.config.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		var expired []string
		for key, item := range c.items {
			if c.isExpired(item) {
				expired = append(expired, key)
			}
		}
		for _, key := range expired {
			c.removeItem(key)
		}
		c.mu.Unlock()
	}
}
