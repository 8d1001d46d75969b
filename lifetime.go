// Package lifetime provides hierarchical, thread-safe resource lifetimes.
//
// A Lifetime is a scope that cleanup actions are attached to. Terminating
// the scope runs every attached action exactly once. Lifetimes nest:
// a Definition creates a child Lifetime linked to one or more parents, and
// the child terminates when it is terminated directly or when the first
// of its parents terminates.
//
// The package enforces a small set of hard invariants:
//
//  1. A Lifetime moves from active to terminated exactly once and never back.
//  2. Pending actions run exactly once, in reverse order of registration.
//  3. Registering on a terminated Lifetime is a silent no-op.
//  4. A child linked to several parents is terminated by whichever
//     parent ends first, and is then unlinked from the others.
//
// IMPORTANT DISCLAIMER:
//
// Actions run synchronously on the goroutine that triggers termination.
// A panicking action propagates out of Terminate and the actions queued
// after it in that pass are never run. Actions must not fail.
//
// This package does not schedule, time out, or distinguish graceful
// completion from cancellation. A caller that wants a deadline terminates
// a Definition from its own timer.
package lifetime

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"weak"
)

// Lifetime holds the pending cleanup actions of one scope.
//
// A Lifetime is only obtained from a Definition or from Eternal, and only
// its owning Definition can terminate it. Everything else may register
// actions, observe termination, or define nested scopes.
type Lifetime struct {
	_ noCopy

	id int64

	// mu guards actions. It is never held while pending actions run,
	// except for the onOpen callback of AddBracket.
	mu sync.Mutex

	// actions is the pending list. nil means terminated.
	actions []*Action
}

// noCopy prevents accidental copying of Lifetime.
type noCopy struct{}

// ID returns the process-unique diagnostic id of l.
// It is never persisted or meaningful across processes.
func (l *Lifetime) ID() int64 { return l.id }

// String returns a diagnostic name of the form lifetime#<id>.
func (l *Lifetime) String() string { return fmt.Sprintf("lifetime#%d", l.id) }

// IsTerminated reports whether l has terminated. Once true it stays true.
func (l *Lifetime) IsTerminated() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.actions == nil
}

// AddAction registers a to run when l terminates.
//
// If l has already terminated, AddAction returns nil and a is neither
// recorded nor run. Registering the same Action twice on an active
// Lifetime returns ErrDuplicateAction.
func (l *Lifetime) AddAction(a *Action) error {
	if a == nil {
		return fmt.Errorf("add action to %s: %w", l, ErrNilArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addLocked(a)
}

func (l *Lifetime) addLocked(a *Action) error {
	if l.actions == nil {
		return nil
	}
	if indexOf(l.actions, a) >= 0 {
		return fmt.Errorf("add action to %s: %w", l, ErrDuplicateAction)
	}
	l.actions = append(l.actions, a)
	return nil
}

// OnTerminate registers fn and returns its Action token.
// The token can later be passed to RemoveAction.
func (l *Lifetime) OnTerminate(fn func()) *Action {
	a := NewAction(fn)
	// A fresh Action cannot be a duplicate.
	_ = l.AddAction(a)
	return a
}

// AddBracket registers onTerminate and then calls onOpen, so the close
// side is only promised when the open side actually ran.
//
// onOpen runs synchronously with l locked, which keeps termination from
// running onTerminate before onOpen returns. onOpen must therefore not
// call back into l. If l has already terminated neither function runs.
func (l *Lifetime) AddBracket(onOpen func(), onTerminate *Action) error {
	if onTerminate == nil {
		return fmt.Errorf("add bracket to %s: %w", l, ErrNilArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.actions == nil {
		return nil
	}
	if err := l.addLocked(onTerminate); err != nil {
		return err
	}
	if onOpen != nil {
		onOpen()
	}
	return nil
}

// Bracket is AddBracket for plain functions. It returns the close token.
func (l *Lifetime) Bracket(onOpen, onTerminate func()) *Action {
	a := NewAction(onTerminate)
	_ = l.AddBracket(onOpen, a)
	return a
}

// RemoveAction unregisters a pending action. It reports whether a was
// pending; it returns false once l has terminated.
func (l *Lifetime) RemoveAction(a *Action) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.removeLocked(a)
}

func (l *Lifetime) removeLocked(a *Action) bool {
	if l.actions == nil {
		return false
	}
	i := indexOf(l.actions, a)
	if i < 0 {
		return false
	}
	l.actions = slices.Delete(l.actions, i, i+1)
	return true
}

// DefineNested defines a child of l. See Define.
func (l *Lifetime) DefineNested(label string) (*Definition, error) {
	return Define(l, label)
}

// terminate ends l and runs its pending actions, most recent first.
//
// The pending list is detached under the lock and run outside of it, so an
// action may safely touch l again: registrations become no-ops and a nested
// terminate returns immediately.
func (l *Lifetime) terminate() {
	l.mu.Lock()
	actions := l.actions
	l.actions = nil
	l.mu.Unlock()

	if actions == nil {
		return
	}

	if debugEnabled() {
		log().Debug("lifetime terminating",
			slog.Int64("lifetime_id", l.id),
			slog.Int("actions", len(actions)))
	}

	for i := len(actions) - 1; i >= 0; i-- {
		actions[i].run()
	}

	pool.release(actions)
}

// link makes d's lifetime a dependent of l.
//
// l keeps d's terminate token; d's lifetime keeps an action that removes
// that token from l if d ends first. The back-reference is weak so a child
// never keeps its parent reachable.
func (l *Lifetime) link(d *Definition) {
	l.mu.Lock()
	if l.actions == nil {
		l.mu.Unlock()
		d.Terminate()
		return
	}
	if indexOf(l.actions, d.terminate) >= 0 {
		l.mu.Unlock()
		return
	}
	l.actions = append(l.actions, d.terminate)
	l.mu.Unlock()

	parent := weak.Make(l)
	token := d.terminate
	d.lifetime.OnTerminate(func() {
		if p := parent.Value(); p != nil {
			p.RemoveAction(token)
		}
	})

	// Either side may have ended while l was unlocked. A child that ended
	// before its unlink action was registered must be unlinked here.
	switch {
	case l.IsTerminated():
		d.Terminate()
	case d.IsTerminated():
		l.RemoveAction(token)
	}
}
