package lifetime

import (
	"context"
	"fmt"
	"sync"
)

// Group admits goroutines bound to a Lifetime.
//
// Group guarantees *admission correctness* and *shutdown ordering*,
// but explicitly does NOT guarantee goroutine termination.
//
// All goroutines started via TryGo:
//
//   - Share one context, cancelled when the group's lifetime terminates.
//   - Are counted exactly once in the internal WaitGroup.
//   - Will be waited for during shutdown *only if they return*.
//
// The group's lifetime is a child of the parent passed to NewGroup, so a
// terminating parent closes admission just like ShutdownAndWait does.
// Goroutine termination is cooperative and entirely the responsibility
// of the caller.
type Group struct {
	_ noCopy

	// def is linked to the parent. Its actions are, in registration
	// order, the termination of inner and then cancel, so cancel runs
	// first on any path that terminates def.
	def *Definition

	// inner is the lifetime handed to callers for attaching resources.
	inner *Definition

	// ctx is cancelled before any resource attached to inner is released.
	ctx    context.Context
	cancel context.CancelCauseFunc

	// mu serializes goroutine admission (TryGo) against shutdown
	// waiting (ShutdownAndWait).
	//
	// TryGo holds mu as a read lock.
	// ShutdownAndWait takes the exclusive lock to block admission.
	mu sync.RWMutex

	// wg tracks all goroutines successfully started via TryGo.
	wg sync.WaitGroup
}

// NewGroup creates a Group whose lifetime is nested in parent.
//
// NewGroup does not start any goroutines. The caller is responsible for
// eventually calling ShutdownAndWait.
func NewGroup(parent *Lifetime) (*Group, error) {
	def, err := Define(parent, "group")
	if err != nil {
		return nil, fmt.Errorf("new group: %w", err)
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	g := &Group{def: def, ctx: ctx, cancel: cancel}

	inner, err := def.Lifetime().DefineNested("group-resources")
	if err != nil {
		// parent terminated while the group was being built.
		cancel(ErrTerminated)
		return nil, fmt.Errorf("new group: %w", err)
	}
	g.inner = inner
	def.Lifetime().OnTerminate(func() { cancel(ErrTerminated) })
	if def.IsTerminated() {
		cancel(ErrTerminated)
	}
	return g, nil
}

// Lifetime returns the group's lifetime. Resources attached to it are
// released when the group shuts down, after the group context has been
// cancelled and before ShutdownAndWait waits.
func (g *Group) Lifetime() *Lifetime { return g.inner.Lifetime() }

// Context returns the context shared by the group's goroutines.
func (g *Group) Context() context.Context { return g.ctx }

// TryGo attempts to start a new goroutine bound to the group.
//
// If the group's lifetime has terminated, TryGo returns ErrShuttingDown
// and f is not executed. TryGo guarantees that WaitGroup.Add is never
// called concurrently with Wait.
func (g *Group) TryGo(f func(ctx context.Context)) error {
	// Fast path: check without taking the admission lock.
	if g.ctx.Err() != nil {
		return ErrShuttingDown
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	// Re-check under the lock; shutdown may have begun in between.
	if g.ctx.Err() != nil {
		return ErrShuttingDown
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		f(g.ctx)
	}()

	return nil
}

// ShutdownAndWait terminates the group's lifetime and blocks until all
// admitted goroutines have returned.
//
// The shutdown sequence is:
//
//  1. Cancel ctx, closing admission and signalling all goroutines to stop.
//  2. Terminate the lifetime, releasing attached resources.
//  3. Take the exclusive lock, waiting for in-flight TryGo calls to
//     finish Add.
//  4. Call WaitGroup.Wait once no further Add calls are possible.
//
// If the parent is already terminating the group on another goroutine,
// step 2 returns immediately; admission is still closed by step 1.
// If any goroutine ignores ctx, ShutdownAndWait blocks indefinitely.
func (g *Group) ShutdownAndWait() {
	g.cancel(ErrTerminated)
	g.def.Terminate()

	g.mu.Lock()
	g.mu.Unlock()

	g.wg.Wait()
}
