package cache

import (
	"sync"
	"time"
)

type entry struct {
	b   []byte
	exp time.Time
}

// TTLCache is an in-process BytesCache. Expired entries are dropped on read
// and swept opportunistically on write, so memory stays bounded by the live
// key set.
type TTLCache struct {
	mu        sync.RWMutex
	m         map[string]entry
	lastSweep time.Time
}

const sweepEvery = time.Minute

func NewTTLCache() *TTLCache {
	return &TTLCache{m: make(map[string]entry), lastSweep: time.Now()}
}

func (c *TTLCache) GetBytes(key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.b, true, nil
}

func (c *TTLCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = entry{b: value, exp: exp}
	c.sweepLocked()
	c.mu.Unlock()
	return nil
}

// sweepLocked drops expired entries at most once per sweepEvery. Callers
// hold c.mu.
func (c *TTLCache) sweepLocked() {
	now := time.Now()
	if now.Sub(c.lastSweep) < sweepEvery {
		return
	}
	c.lastSweep = now
	for k, e := range c.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(c.m, k)
		}
	}
}
