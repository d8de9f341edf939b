package embedding

import (
	"container/list"
	"context"
	"sync"
)

type cacheKey struct {
	task TaskType
	text string
}

type cacheEntry struct {
	key   cacheKey
	value []float32
}

// EmbeddingCache is an LRU cache of vectors keyed by task type and text.
type EmbeddingCache struct {
	capacity int
	entries  map[cacheKey]*list.Element
	lru      *list.List
	mu       sync.Mutex
	hits     uint64
	misses   uint64
}

// NewEmbeddingCache creates a new cache with the given capacity.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		capacity: capacity,
		entries:  make(map[cacheKey]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached embedding if present.
func (c *EmbeddingCache) Get(task TaskType, text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[cacheKey{task, text}]; ok {
		c.lru.MoveToFront(elem)
		c.hits++
		return elem.Value.(*cacheEntry).value, true
	}
	c.misses++
	return nil, false
}

// Set stores the embedding, evicting the least recently used entry if at capacity.
func (c *EmbeddingCache) Set(task TaskType, text string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{task, text}
	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}
	c.entries[key] = c.lru.PushFront(&cacheEntry{key: key, value: value})
	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Stats returns hit and miss counts.
func (c *EmbeddingCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// CachedEmbedder memoizes another Embedder within one process.
type CachedEmbedder struct {
	next  Embedder
	cache *EmbeddingCache
}

// NewCachedEmbedder wraps next with an LRU cache of the given capacity.
func NewCachedEmbedder(next Embedder, capacity int) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: NewEmbeddingCache(capacity)}
}

// Embed returns the cached vector or asks the wrapped embedder.
func (e *CachedEmbedder) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	if v, ok := e.cache.Get(task, text); ok {
		return v, nil
	}
	v, err := e.next.Embed(ctx, text, task)
	if err != nil {
		return nil, err
	}
	e.cache.Set(task, text, v)
	return v, nil
}

// Dimensions returns the wrapped embedder's dimension.
func (e *CachedEmbedder) Dimensions() int {
	return e.next.Dimensions()
}

// Close closes the wrapped embedder.
func (e *CachedEmbedder) Close() error {
	return e.next.Close()
}

// Cache exposes the underlying cache for stats.
func (e *CachedEmbedder) Cache() *EmbeddingCache {
	return e.cache
}
