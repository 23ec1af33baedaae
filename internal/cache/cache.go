package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Store is the byte-oriented cache the session service reads through.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, key string) error
	// Incr bumps a counter that never expires and returns its new value. Get
	// on the same key reads it back as a decimal string.
	Incr(ctx context.Context, key string) (int64, error)
}

// Cache is an in-process TTL cache, used when no redis address is configured.
type Cache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	clock clockwork.Clock
	m     map[string]entry
}
type entry struct {
	val []byte
	exp time.Time
}

func New(ttl time.Duration) *Cache {
	return NewWithClock(ttl, clockwork.NewRealClock())
}

func NewWithClock(ttl time.Duration, clock clockwork.Clock) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache{
		ttl:   ttl,
		clock: clock,
		m:     make(map[string]entry),
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := c.clock.Now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if !e.exp.IsZero() && now.After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false, nil
	}

	return e.val, true, nil
}

func (c *Cache) Set(_ context.Context, key string, val []byte) error {
	c.mu.Lock()
	c.m[key] = entry{val: val, exp: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
	return nil
}

func (c *Cache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	if e, ok := c.m[key]; ok {
		cur, err := strconv.ParseInt(string(e.val), 10, 64)
		if err != nil {
			return 0, err
		}
		n = cur
	}
	n++

	c.m[key] = entry{val: []byte(strconv.FormatInt(n, 10))}
	return n, nil
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.m = make(map[string]entry)
	c.mu.Unlock()
}
