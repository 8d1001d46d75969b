package lifetime

import "errors"

// ErrNilArgument is returned when a required Lifetime, Action or resource
// argument is nil.
var ErrNilArgument = errors.New("lifetime: nil argument")

// ErrTerminated is returned when a Definition is requested against a
// Lifetime that has already terminated.
//
// It is also the cancellation cause of contexts produced by Context.
var ErrTerminated = errors.New("lifetime: terminated")

// ErrDuplicateAction is returned by AddAction and AddBracket when the same
// Action is already pending on the Lifetime.
var ErrDuplicateAction = errors.New("lifetime: action already registered")

// ErrShuttingDown is returned by Group.TryGo when the group's lifetime
// has already terminated.
//
// Once this error is returned, no new goroutines will be started
// for the remaining life of the Group.
var ErrShuttingDown = errors.New("lifetime: group shutting down")
