package lifetime

import "fmt"

// Definition owns a child Lifetime and is the only handle able to
// terminate it.
//
// The child terminates exactly once: either through Terminate/Close or
// because one of the parents it was linked to terminated first.
//
// Typical scoped use:
//
//	def, err := lifetime.Define(parent, "request")
//	if err != nil {
//		return err
//	}
//	defer def.Close()
type Definition struct {
	label    string
	lifetime *Lifetime
	parentID int64

	// terminate is the single token registered on every parent, which
	// makes a repeated link to the same parent a pointer comparison.
	terminate *Action
}

func newDefinition(label string) *Definition {
	d := &Definition{
		label:    label,
		lifetime: newLifetime(),
		parentID: -1,
	}
	d.terminate = NewAction(d.lifetime.terminate)
	return d
}

// Define creates a Definition whose child Lifetime depends on parent.
//
// It returns ErrNilArgument for a nil parent and ErrTerminated if parent
// has already terminated. If parent terminates while the link is being
// established, the child is terminated before Define returns.
func Define(parent *Lifetime, label string) (*Definition, error) {
	if parent == nil {
		return nil, fmt.Errorf("define %q: %w", label, ErrNilArgument)
	}
	if parent.IsTerminated() {
		return nil, fmt.Errorf("define %q on %s: %w", label, parent, ErrTerminated)
	}

	d := newDefinition(label)
	d.parentID = parent.id
	parent.link(d)
	return d, nil
}

// Intersection creates a Definition that terminates as soon as any of
// parents terminates.
//
// The Definition is anchored to Eternal and then linked to every listed
// parent. Parents that have already terminated end the child right away.
// Once the child ends, its token is removed from every parent still alive.
func Intersection(parents ...*Lifetime) (*Definition, error) {
	return IntersectionLabeled("", parents...)
}

// IntersectionLabeled is Intersection with a diagnostic label.
func IntersectionLabeled(label string, parents ...*Lifetime) (*Definition, error) {
	for i, p := range parents {
		if p == nil {
			return nil, fmt.Errorf("intersection %q: parent %d: %w", label, i, ErrNilArgument)
		}
	}

	d, err := Define(Eternal(), label)
	if err != nil {
		return nil, err
	}
	for _, p := range parents {
		p.link(d)
	}
	return d, nil
}

// Label returns the caller-supplied diagnostic label, possibly empty.
func (d *Definition) Label() string { return d.label }

// Lifetime returns the child Lifetime owned by d.
func (d *Definition) Lifetime() *Lifetime { return d.lifetime }

// ParentID returns the id of the first parent d was defined against,
// or -1 if there was none.
func (d *Definition) ParentID() int64 { return d.parentID }

// IsTerminated reports whether d's lifetime has terminated.
func (d *Definition) IsTerminated() bool { return d.lifetime.IsTerminated() }

// Terminate ends d's lifetime and runs its actions. Later calls do nothing.
func (d *Definition) Terminate() { d.lifetime.terminate() }

// Close terminates d. It always returns nil and exists so a Definition
// can be released with defer or handed to code expecting an io.Closer.
func (d *Definition) Close() error {
	d.Terminate()
	return nil
}

// String describes d for logs: its lifetime, label and parent id.
func (d *Definition) String() string {
	if d.label == "" {
		return fmt.Sprintf("definition(%s, parent=%d)", d.lifetime, d.parentID)
	}
	return fmt.Sprintf("definition(%s %q, parent=%d)", d.lifetime, d.label, d.parentID)
}
