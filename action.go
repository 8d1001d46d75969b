package lifetime

// Action is a unit of cleanup work registered on a Lifetime.
//
// Go functions are not comparable, so an Action is identified by its
// pointer. The *Action returned by NewAction (or OnTerminate, Bracket,
// AttachRelease) is the token used for duplicate detection and for
// RemoveAction.
type Action struct {
	fn func()
}

// NewAction wraps fn in a new Action.
//
// A nil fn yields an Action that does nothing when run.
func NewAction(fn func()) *Action {
	return &Action{fn: fn}
}

func (a *Action) run() {
	if a.fn != nil {
		a.fn()
	}
}

// indexOf returns the position of a in actions, or -1.
func indexOf(actions []*Action, a *Action) int {
	for i, x := range actions {
		if x == a {
			return i
		}
	}
	return -1
}
