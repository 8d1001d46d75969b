package lifetime

import "sync"

// newLifetime creates an active Lifetime backed by a pooled action list.
//
// Lifetimes are only created here, by Define, and by Eternal. Nothing
// outside the package can construct one, so every Lifetime has an owner
// able to terminate it.
func newLifetime() *Lifetime {
	id, actions := pool.acquire()
	return &Lifetime{
		id:      id,
		actions: actions,
	}
}

var (
	eternalOnce sync.Once
	eternal     *Lifetime
)

// Eternal returns the process-wide root Lifetime.
//
// Eternal is created on first use and is never terminated by this
// package. Definitions built by Intersection are anchored to it so that
// each one always has at least one parent, even when none is listed.
func Eternal() *Lifetime {
	eternalOnce.Do(func() {
		eternal = newLifetime()
	})
	return eternal
}
