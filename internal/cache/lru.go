package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache keeps at most maxSize entries, each valid for ttl after it was
// stored. A full cache drops its least recently read entry.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	entries map[string]*list.Element
	order   *list.List // front is most recently used
	now     func() time.Time
	copy    func(T) T
}

type entry[T any] struct {
	key     string
	value   T
	expires time.Time
}

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		maxSize: max(maxSize, 1),
		ttl:     ttl,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
		copy:    func(v T) T { return v },
	}
}

// WithCopy makes the cache store and hand out copies made by fn, so callers
// never share backing storage with a cached value.
func (c *LRUCache[T]) WithCopy(fn func(T) T) *LRUCache[T] {
	c.copy = fn
	return c
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.live(key)
	if !ok {
		var zero T
		return zero, false
	}
	return c.copy(e.value), true
}

// Load returns the cached value for key, calling load on a miss and caching
// its result. Errors are returned as-is and never cached.
func (c *LRUCache[T]) Load(key string, load func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return c.copy(v), nil
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: c.copy(value), expires: c.now().Add(c.ttl)}
	if elem, ok := c.entries[key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}
	c.entries[key] = c.order.PushFront(e)
	for c.order.Len() > c.maxSize {
		c.drop(c.order.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.drop(elem)
	}
}

// CleanExpired removes expired entries and returns how many were removed.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if now.After(elem.Value.(*entry[T]).expires) {
			c.drop(elem)
			removed++
		}
		elem = next
	}
	return removed
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// live returns the unexpired entry for key and marks it as recently used.
// Callers hold c.mu.
func (c *LRUCache[T]) live(key string) (*entry[T], bool) {
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := elem.Value.(*entry[T])
	if c.now().After(e.expires) {
		c.drop(elem)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return e, true
}

func (c *LRUCache[T]) drop(elem *list.Element) {
	delete(c.entries, elem.Value.(*entry[T]).key)
	c.order.Remove(elem)
}
