package local

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
}

// entry holds a cached string value. A zero expireAt means the key
// never expires.
type entry struct {
	data     string
	expireAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

func newEntry(value string, ttl time.Duration) entry {
	e := entry{data: value}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}
	return e
}

// LocalCache is an in-process cache implementing the Cache interface.
// It backs session tokens and chat history when no Redis is configured.
type LocalCache struct {
	mu         sync.RWMutex
	kv         map[string]entry
	lists      map[string][]string
	gcInterval time.Duration
	stopGC     chan struct{}
}

// NewCache creates a LocalCache and starts the background GC goroutine.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := &LocalCache{
		kv:         make(map[string]entry),
		lists:      make(map[string][]string),
		gcInterval: interval,
		stopGC:     make(chan struct{}),
	}
	go c.runGC()
	return c, nil
}

// Close stops the background GC goroutine.
func (c *LocalCache) Close() {
	close(c.stopGC)
}

func (c *LocalCache) runGC() {
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopGC:
			return
		}
	}
}

func (c *LocalCache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.kv {
		if e.expired(now) {
			delete(c.kv, k)
		}
	}
}

// lookup returns the live entry for key, lazily dropping it if expired.
// Caller must hold c.mu for writing.
func (c *LocalCache) lookup(key string) (entry, bool) {
	e, ok := c.kv[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(time.Now()) {
		delete(c.kv, key)
		return entry{}, false
	}
	return e, true
}

// ---- KV ----

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.data, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kv[key] = newEntry(value, ttl)
	return nil
}

func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.kv, k)
	}
	return nil
}

func (c *LocalCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lookup(key)
	return ok, nil
}

func (c *LocalCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lookup(key); ok {
		return false, nil
	}
	c.kv[key] = newEntry(value, ttl)
	return true, nil
}

func (c *LocalCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookup(key)
	if !ok {
		return ErrNotFound
	}
	e.expireAt = time.Now().Add(ttl)
	c.kv[key] = e
	return nil
}

// ---- List ----

// clampRange converts Redis-style start/stop indexes (negative counts
// from the tail) into a valid [start, stop] window, or ok=false when the
// window is empty.
func clampRange(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start >= n || stop < start {
		return 0, 0, false
	}
	return start, stop, true
}

func (c *LocalCache) LPush(_ context.Context, key string, values ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.lists[key]
	// LPush prepends, newest first.
	for _, v := range values {
		l = append([]string{v}, l...)
	}
	c.lists[key] = l
	return nil
}

func (c *LocalCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l := c.lists[key]
	start, stop, ok := clampRange(int64(len(l)), start, stop)
	if !ok {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, l[start:stop+1])
	return out, nil
}

func (c *LocalCache) LTrim(_ context.Context, key string, start, stop int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.lists[key]
	start, stop, ok := clampRange(int64(len(l)), start, stop)
	if !ok {
		delete(c.lists, key)
		return nil
	}
	c.lists[key] = append([]string(nil), l[start:stop+1]...)
	return nil
}
