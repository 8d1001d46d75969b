package lifetime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Releaser is a resource with a single release operation.
type Releaser interface {
	Release()
}

// AttachRelease registers r.Release to run when l terminates and returns
// the Action token. It behaves like AddAction otherwise.
func AttachRelease(r Releaser, l *Lifetime) (*Action, error) {
	if r == nil || l == nil {
		return nil, fmt.Errorf("attach release: %w", ErrNilArgument)
	}
	a := NewAction(r.Release)
	if err := l.AddAction(a); err != nil {
		return nil, err
	}
	return a, nil
}

// AttachCloser registers c.Close to run when l terminates.
//
// Actions cannot report failure, so a Close error is logged and dropped.
func AttachCloser(c io.Closer, l *Lifetime) (*Action, error) {
	if c == nil || l == nil {
		return nil, fmt.Errorf("attach closer: %w", ErrNilArgument)
	}
	id := l.id
	a := NewAction(func() {
		if err := c.Close(); err != nil {
			log().Warn("close on lifetime termination failed",
				slog.Int64("lifetime_id", id),
				slog.Any("error", err))
		}
	})
	if err := l.AddAction(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Context returns a context derived from parent that is cancelled when l
// terminates. context.Cause reports ErrTerminated in that case.
//
// If l has already terminated, the returned context is already cancelled.
// If parent is cancelled first, the pending action is removed from l.
// A nil parent or l returns ErrNilArgument.
func Context(parent context.Context, l *Lifetime) (context.Context, error) {
	if parent == nil || l == nil {
		return nil, fmt.Errorf("context: %w", ErrNilArgument)
	}
	ctx, cancel := context.WithCancelCause(parent)
	a := l.OnTerminate(func() { cancel(ErrTerminated) })
	if l.IsTerminated() {
		cancel(ErrTerminated)
		return ctx, nil
	}
	context.AfterFunc(ctx, func() { l.RemoveAction(a) })
	return ctx, nil
}
