package lifetime

import "sync"

const (
	// maxPooled bounds how many idle action lists the pool retains.
	maxPooled = 256

	// maxPooledCap drops unusually large lists instead of pinning them.
	maxPooledCap = 1024

	// initialCap is the capacity of a freshly allocated action list.
	initialCap = 4
)

// PoolStats is a snapshot of the process-wide lifetime bookkeeping.
type PoolStats struct {
	// Created counts every Lifetime constructed, including Eternal.
	Created int64
	// Terminated counts Lifetimes whose termination pass completed.
	Terminated int64
	// PoolHits counts constructions served from a recycled list.
	PoolHits int64
	// PoolMisses counts constructions that allocated a new list.
	PoolMisses int64
	// Pooled is the number of idle lists currently held.
	Pooled int
}

// actionPool is the process-wide free list of action slices and the id
// counter. Its mutex is never held together with a Lifetime's mutex.
type actionPool struct {
	mu    sync.Mutex
	free  [][]*Action
	next  int64
	stats PoolStats
}

var pool actionPool

// acquire assigns the next id and hands out an empty, non-nil list.
func (p *actionPool) acquire() (int64, []*Action) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.next++
	p.stats.Created++

	if n := len(p.free); n > 0 {
		list := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.stats.PoolHits++
		return p.next, list
	}

	p.stats.PoolMisses++
	return p.next, make([]*Action, 0, initialCap)
}

// release clears list and returns it to the free list.
func (p *actionPool) release(list []*Action) {
	clear(list)
	list = list[:0]

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Terminated++
	if cap(list) > maxPooledCap || len(p.free) >= maxPooled {
		return
	}
	p.free = append(p.free, list)
}

func (p *actionPool) snapshot() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	s.Pooled = len(p.free)
	return s
}

// Stats returns a snapshot of process-wide lifetime counters.
func Stats() PoolStats {
	return pool.snapshot()
}
