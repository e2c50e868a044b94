// Package cache provides an in-process expiring cache with bounded size.
//
// Entries expire lazily: an expired entry is only removed when it is read.
// When the cache is full, the least recently used entry is evicted first.
package cache

import (
	"container/list"
	"math"
	"sync"
	"time"
)

const (
	DefaultMaxSize = 1000
	DefaultTTL     = time.Hour
)

// Entry is a cached value plus the instant after which it is stale.
type Entry[T any] struct {
	Value     T
	ExpiresAt time.Time
}

func (e *Entry[T]) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

type item[T any] struct {
	key   string
	entry Entry[T]
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate_percent"`
}

// TTLCache is safe for concurrent use.
type TTLCache[T any] struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front = most recently used
	maxSize    int
	defaultTTL time.Duration
	hits       uint64
	misses     uint64
	now        func() time.Time
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New[T any](maxSize int, defaultTTL time.Duration, opts ...Option) *TTLCache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &TTLCache[T]{
		items:      make(map[string]*list.Element, maxSize),
		order:      list.New(),
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		now:        o.now,
	}
}

// Get returns the value for key and promotes it to most recently used.
func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}

	it := el.Value.(*item[T])
	if it.entry.expired(c.now()) {
		c.removeElement(el)
		c.misses++
		return zero, false
	}

	c.order.MoveToFront(el)
	c.hits++
	return it.entry.Value, true
}

// Set stores value under key. A ttl <= 0 falls back to the cache default.
func (c *TTLCache[T]) Set(key string, value T, ttl ...time.Duration) {
	d := c.defaultTTL
	if len(ttl) > 0 && ttl[0] > 0 {
		d = ttl[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := Entry[T]{Value: value, ExpiresAt: c.now().Add(d)}

	// Overwriting an existing key never triggers eviction.
	if el, ok := c.items[key]; ok {
		el.Value.(*item[T]).entry = entry
		c.order.MoveToFront(el)
		return
	}

	for c.order.Len() >= c.maxSize {
		c.removeElement(c.order.Back())
	}

	c.items[key] = c.order.PushFront(&item[T]{key: key, entry: entry})
}

func (c *TTLCache[T]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// Clear drops every entry and resets the hit/miss counters.
func (c *TTLCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.maxSize)
	c.order.Init()
	c.hits = 0
	c.misses = 0
}

func (c *TTLCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *TTLCache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rate float64
	if total := c.hits + c.misses; total > 0 {
		rate = math.Round(float64(c.hits)/float64(total)*100*100) / 100
	}
	return Stats{
		Size:    c.order.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
	}
}

func (c *TTLCache[T]) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.items, el.Value.(*item[T]).key)
}
