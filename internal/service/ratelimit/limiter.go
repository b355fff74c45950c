package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a per-key token bucket. The stream endpoint keys it by remote
// address so one reconnect-looping client cannot starve the upgrade path
// for everyone else.
type Limiter struct {
	mu       sync.Mutex
	m        map[string]*bucket
	capacity float64
	refill   float64 // tokens per second
	lastScan time.Time
}

// staleAfter is how long an idle bucket survives before the scan drops it.
// A full bucket carries no state worth keeping.
const staleAfter = 5 * time.Minute

// New builds a limiter where every key refills at refillPerSec and bursts
// up to capacity.
func New(capacity, refillPerSec float64) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	if refillPerSec <= 0 {
		refillPerSec = capacity
	}
	return &Limiter{
		m:        make(map[string]*bucket),
		capacity: capacity,
		refill:   refillPerSec,
		lastScan: time.Now(),
	}
}

// Allow consumes one token for key, reporting whether one was available.
func (l *Limiter) Allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	l.evictStale(now)
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// evictStale walks the map at most once per staleAfter. Callers hold l.mu.
func (l *Limiter) evictStale(now time.Time) {
	if now.Sub(l.lastScan) < staleAfter {
		return
	}
	l.lastScan = now
	for k, b := range l.m {
		if now.Sub(b.last) >= staleAfter {
			delete(l.m, k)
		}
	}
}
