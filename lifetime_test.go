package lifetime_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BinGo-Lab-Team/lifetime"
)

// newRoot returns a fresh Definition nested in Eternal and terminates it
// when the test ends.
func newRoot(t *testing.T) *lifetime.Definition {
	t.Helper()
	def, err := lifetime.Define(lifetime.Eternal(), t.Name())
	require.NoError(t, err)
	t.Cleanup(def.Terminate)
	return def
}

// recorder collects action invocations in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) fn(name string) func() {
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, name)
	}
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// TestIsTerminatedMonotonic verifies that IsTerminated flips exactly once.
func TestIsTerminatedMonotonic(t *testing.T) {
	def := newRoot(t)
	lt := def.Lifetime()

	assert.False(t, lt.IsTerminated())
	assert.False(t, def.IsTerminated())

	def.Terminate()
	assert.True(t, lt.IsTerminated())

	def.Terminate()
	assert.True(t, lt.IsTerminated(), "terminated state must be permanent")
}

// TestActionsRunInReverseOrder verifies LIFO execution of pending actions.
func TestActionsRunInReverseOrder(t *testing.T) {
	def := newRoot(t)
	rec := &recorder{}

	for _, name := range []string{"a1", "a2", "a3"} {
		require.NoError(t, def.Lifetime().AddAction(lifetime.NewAction(rec.fn(name))))
	}

	def.Terminate()
	assert.Equal(t, []string{"a3", "a2", "a1"}, rec.get())
}

// TestTerminateIsIdempotent verifies that a second Terminate runs nothing.
func TestTerminateIsIdempotent(t *testing.T) {
	def := newRoot(t)
	count := 0
	def.Lifetime().OnTerminate(func() { count++ })

	def.Terminate()
	def.Terminate()
	require.NoError(t, def.Close())

	assert.Equal(t, 1, count)
}

// TestAddActionAfterTerminateIsNoop verifies that registering on a dead
// lifetime succeeds without ever running the action.
func TestAddActionAfterTerminateIsNoop(t *testing.T) {
	def := newRoot(t)
	def.Terminate()

	called := false
	err := def.Lifetime().AddAction(lifetime.NewAction(func() { called = true }))
	require.NoError(t, err)

	def.Terminate()
	assert.False(t, called)
}

// TestAddActionDuplicate verifies that the same Action cannot be pending
// twice on an active lifetime.
func TestAddActionDuplicate(t *testing.T) {
	def := newRoot(t)
	a := lifetime.NewAction(func() {})

	require.NoError(t, def.Lifetime().AddAction(a))
	err := def.Lifetime().AddAction(a)
	assert.ErrorIs(t, err, lifetime.ErrDuplicateAction)
}

// TestAddActionNil verifies that a nil Action is rejected.
func TestAddActionNil(t *testing.T) {
	def := newRoot(t)
	assert.ErrorIs(t, def.Lifetime().AddAction(nil), lifetime.ErrNilArgument)
}

// TestNilActionFuncIsHarmless verifies that an Action without a function
// runs as a no-op.
func TestNilActionFuncIsHarmless(t *testing.T) {
	def := newRoot(t)
	require.NoError(t, def.Lifetime().AddAction(lifetime.NewAction(nil)))
	assert.NotPanics(t, def.Terminate)
}

// TestRemoveAction verifies that a removed action does not run.
func TestRemoveAction(t *testing.T) {
	def := newRoot(t)
	rec := &recorder{}

	def.Lifetime().OnTerminate(rec.fn("kept"))
	removed := def.Lifetime().OnTerminate(rec.fn("removed"))

	assert.True(t, def.Lifetime().RemoveAction(removed))
	assert.False(t, def.Lifetime().RemoveAction(removed), "second removal finds nothing")

	def.Terminate()
	assert.Equal(t, []string{"kept"}, rec.get())
	assert.False(t, def.Lifetime().RemoveAction(removed))
}

// TestBracketOnActive verifies that open runs immediately and close runs
// at termination.
func TestBracketOnActive(t *testing.T) {
	def := newRoot(t)
	rec := &recorder{}

	def.Lifetime().Bracket(rec.fn("open"), rec.fn("close"))
	assert.Equal(t, []string{"open"}, rec.get())

	def.Terminate()
	assert.Equal(t, []string{"open", "close"}, rec.get())
}

// TestBracketOnTerminated verifies that neither side runs on a dead
// lifetime.
func TestBracketOnTerminated(t *testing.T) {
	def := newRoot(t)
	def.Terminate()
	rec := &recorder{}

	require.NoError(t, def.Lifetime().AddBracket(rec.fn("open"), lifetime.NewAction(rec.fn("close"))))
	def.Terminate()

	assert.Empty(t, rec.get())
}

// TestBracketDuplicateSkipsOpen verifies that a rejected close action
// keeps open from running.
func TestBracketDuplicateSkipsOpen(t *testing.T) {
	def := newRoot(t)
	closeAction := lifetime.NewAction(func() {})
	require.NoError(t, def.Lifetime().AddAction(closeAction))

	opened := false
	err := def.Lifetime().AddBracket(func() { opened = true }, closeAction)
	assert.ErrorIs(t, err, lifetime.ErrDuplicateAction)
	assert.False(t, opened)
}

// TestActionMayReenterOwnLifetime verifies that an action touching its
// own lifetime during termination neither deadlocks nor runs twice.
func TestActionMayReenterOwnLifetime(t *testing.T) {
	def := newRoot(t)
	lt := def.Lifetime()
	count := 0

	lt.OnTerminate(func() {
		count++
		assert.True(t, lt.IsTerminated())
		lt.OnTerminate(func() { t.Error("late registration must not run") })
		def.Terminate()
	})

	def.Terminate()
	assert.Equal(t, 1, count)
}

// TestPanickingActionStopsPass verifies that a panic propagates and the
// actions queued after it are skipped.
func TestPanickingActionStopsPass(t *testing.T) {
	def := newRoot(t)
	rec := &recorder{}

	def.Lifetime().OnTerminate(rec.fn("skipped"))
	def.Lifetime().OnTerminate(func() { panic("boom") })
	def.Lifetime().OnTerminate(rec.fn("first"))

	assert.PanicsWithValue(t, "boom", def.Terminate)
	assert.Equal(t, []string{"first"}, rec.get())
	assert.True(t, def.IsTerminated())

	assert.NotPanics(t, def.Terminate, "second terminate is a no-op")
}

// TestIDsAreUniqueAndIncreasing verifies the diagnostic id contract.
func TestIDsAreUniqueAndIncreasing(t *testing.T) {
	root := newRoot(t)

	prev := root.Lifetime().ID()
	for range 10 {
		def, err := root.Lifetime().DefineNested("")
		require.NoError(t, err)
		assert.Greater(t, def.Lifetime().ID(), prev)
		prev = def.Lifetime().ID()
	}
	assert.Positive(t, lifetime.Eternal().ID())
}

// TestEndToEnd covers the root → child → actions → cascade scenario.
func TestEndToEnd(t *testing.T) {
	root := newRoot(t)
	child, err := lifetime.Define(root.Lifetime(), "child")
	require.NoError(t, err)

	rec := &recorder{}
	child.Lifetime().OnTerminate(rec.fn("a"))
	child.Lifetime().OnTerminate(rec.fn("b"))

	root.Terminate()

	assert.True(t, child.IsTerminated())
	assert.Equal(t, []string{"b", "a"}, rec.get())
}

// TestConcurrentRegistrationAndTerminate applies registration pressure
// while termination happens and checks every recorded action ran once.
func TestConcurrentRegistrationAndTerminate(t *testing.T) {
	def := newRoot(t)
	lt := def.Lifetime()

	const goroutines = 16
	const perGoroutine = 200

	var (
		mu    sync.Mutex
		added = map[*lifetime.Action]int{}
		runs  = map[*lifetime.Action]int{}
	)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for range perGoroutine {
				var a *lifetime.Action
				a = lifetime.NewAction(func() {
					mu.Lock()
					runs[a]++
					mu.Unlock()
				})
				if lt.IsTerminated() {
					continue
				}
				assert.NoError(t, lt.AddAction(a))
				mu.Lock()
				added[a]++
				mu.Unlock()
			}
		}()
	}

	close(start)
	def.Terminate()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for a, n := range runs {
		assert.Equal(t, 1, n)
		assert.Equal(t, 1, added[a], "only registered actions may run")
	}
}
