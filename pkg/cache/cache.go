// pkg/cache/cache.go
package cache

import (
	"container/list"
	"sync"
	"time"

	"imgvault/pkg/utils"

	"github.com/jonboulle/clockwork"
)

const (
	// DefaultMaxSize is used when Options.MaxSize is not set
	DefaultMaxSize = 1000
	// DefaultTTL is the ttl applied by SetDefault
	DefaultTTL = 300 * time.Second
	// DefaultSweepInterval is how often expired entries are purged in the background
	DefaultSweepInterval = 5 * time.Minute
)

// TTL tiers used by callers when storing derived data
const (
	TTLShort  = 30 * time.Second // aggregate stats
	TTLMedium = 300 * time.Second
	TTLLong   = time.Hour // image info, manifests, placeholders
	TTLDay    = 24 * time.Hour
)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Options configures a TTLCache
type Options struct {
	MaxSize       int
	DefaultTTL    time.Duration
	SweepInterval time.Duration
	Clock         clockwork.Clock
	Logger        *utils.Logger
}

// TTLCache is a bounded in-memory store with per-entry expiry.
// When full, the oldest inserted entry is evicted.
type TTLCache[V any] struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List // insertion order, front is oldest
	maxSize int

	defaultTTL    time.Duration
	sweepInterval time.Duration
	clock         clockwork.Clock
	log           *utils.Logger

	hits      int64
	misses    int64
	sets      int64
	deletes   int64
	evictions int64

	stop chan struct{}
	done chan struct{}
}

// New creates an empty cache. The background sweep is not running until Start is called.
func New[V any](opts Options) *TTLCache[V] {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}

	return &TTLCache[V]{
		items:         make(map[string]*list.Element),
		order:         list.New(),
		maxSize:       opts.MaxSize,
		defaultTTL:    opts.DefaultTTL,
		sweepInterval: opts.SweepInterval,
		clock:         opts.Clock,
		log:           opts.Logger,
	}
}

// Set inserts or overwrites key. A non-positive ttl stores an entry that is already stale.
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	now := c.clock.Now()
	expiresAt := now.Add(ttl)
	if ttl <= 0 {
		expiresAt = now.Add(-time.Nanosecond)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sets++

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.expiresAt = expiresAt
		return
	}

	if len(c.items) >= c.maxSize {
		if oldest := c.order.Front(); oldest != nil {
			c.removeElement(oldest)
			c.evictions++
		}
	}

	c.items[key] = c.order.PushBack(&entry[V]{key: key, value: value, expiresAt: expiresAt})
}

// SetDefault stores value with the cache default ttl
func (c *TTLCache[V]) SetDefault(key string, value V) {
	c.Set(key, value, c.defaultTTL)
}

// Get returns the value for key if present and not expired
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}

	e := el.Value.(*entry[V])
	if e.expired(now) {
		c.removeElement(el)
		c.misses++
		c.deletes++
		return zero, false
	}

	c.hits++
	return e.value, true
}

// Has reports whether key holds a live entry. Hit and miss counters are untouched.
func (c *TTLCache[V]) Has(key string) bool {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	if el.Value.(*entry[V]).expired(now) {
		c.removeElement(el)
		c.deletes++
		return false
	}
	return true
}

// Delete removes key and reports whether it was present
func (c *TTLCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(el)
	c.deletes++
	return true
}

// Clear drops every entry. Lifetime counters other than deletes are kept.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deletes += int64(len(c.items))
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of physically stored entries, expired ones included
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// removeElement must be called with mu held
func (c *TTLCache[V]) removeElement(el *list.Element) {
	e := c.order.Remove(el).(*entry[V])
	delete(c.items, e.key)
}

// GetAs reads key from an untyped cache and asserts the stored type
func GetAs[T any](c *TTLCache[any], key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
