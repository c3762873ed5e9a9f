package sql

import (
	"sync"
	"sync/atomic"
)

// DefaultCacheCapacity is the number of statements a StatementCache holds
// unless configured otherwise.
const DefaultCacheCapacity = 512

type cacheKey struct {
	stmt    Statement
	dialect string
}

// StatementCache maps statements to their compiled form. It is keyed by
// statement identity and dialect, so statements must not be modified once
// they were compiled through the cache. Lookups may run concurrently; when
// two goroutines compile the same statement, the first stored result wins.
// Once full, the oldest entries are evicted first.
type StatementCache struct {
	entries  sync.Map // cacheKey -> *Compiled
	mu       sync.Mutex
	order    []cacheKey
	capacity int
	hits     atomic.Int64
	misses   atomic.Int64
}

// CacheOption configures a StatementCache.
type CacheOption func(*StatementCache)

// WithCapacity sets the maximum number of cached statements. A capacity of
// zero or less disables eviction.
func WithCapacity(n int) CacheOption {
	return func(c *StatementCache) {
		c.capacity = n
	}
}

// NewStatementCache returns an empty cache.
func NewStatementCache(opts ...CacheOption) *StatementCache {
	c := &StatementCache{capacity: DefaultCacheCapacity}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile returns the cached compilation of stmt, compiling it on a miss.
// Failed compilations are not cached.
func (c *StatementCache) Compile(stmt Statement, d *Dialect, opts ...CompileOption) (*Compiled, error) {
	key := cacheKey{stmt: stmt, dialect: d.Name()}
	if v, ok := c.entries.Load(key); ok {
		c.hits.Add(1)
		return v.(*Compiled), nil
	}
	c.misses.Add(1)
	compiled, err := Compile(stmt, d, opts...)
	if err != nil {
		return nil, err
	}
	v, loaded := c.entries.LoadOrStore(key, compiled)
	if !loaded {
		c.track(key)
	}
	return v.(*Compiled), nil
}

func (c *StatementCache) track(key cacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = append(c.order, key)
	for c.capacity > 0 && len(c.order) > c.capacity {
		c.entries.Delete(c.order[0])
		c.order = c.order[1:]
	}
}

// Evict removes the compilations of stmt for all dialects.
func (c *StatementCache) Evict(stmt Statement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.order[:0]
	for _, key := range c.order {
		if key.stmt == stmt {
			c.entries.Delete(key)
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
}

// Clear removes all entries.
func (c *StatementCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.order {
		c.entries.Delete(key)
	}
	c.order = nil
}

// Len returns the number of cached statements.
func (c *StatementCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Stats returns the number of hits and misses.
func (c *StatementCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
