package aichat

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterPool hands out one rate.Limiter per channel and evicts
// limiters idle for longer than the eviction window, keeping the map
// bounded by the set of recently active channels.
type limiterPool struct {
	mu      sync.Mutex
	entries map[string]*pooledLimiter

	limit rate.Limit
	burst int

	evictAfter time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

type pooledLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

func newLimiterPool(limit rate.Limit, burst int, evictAfter time.Duration) *limiterPool {
	return &limiterPool{
		entries:    map[string]*pooledLimiter{},
		limit:      limit,
		burst:      burst,
		evictAfter: evictAfter,
		now:        time.Now,
	}
}

// Allow reports whether key may proceed under its channel's limiter.
func (p *limiterPool) Allow(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.sweepLocked(now)

	e, ok := p.entries[key]
	if !ok {
		e = &pooledLimiter{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.entries[key] = e
	}
	e.lastUsed = now
	return e.limiter.Allow()
}

func (p *limiterPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func (p *limiterPool) sweepLocked(now time.Time) {
	if now.Sub(p.lastSweep) < p.evictAfter {
		return
	}
	p.lastSweep = now
	for key, e := range p.entries {
		if now.Sub(e.lastUsed) >= p.evictAfter {
			delete(p.entries, key)
		}
	}
}
