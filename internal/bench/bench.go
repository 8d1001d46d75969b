// Package bench drives create/terminate cycles through the lifetime package
// and reports how the process-wide action pool behaves under load.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BinGo-Lab-Team/lifetime"
)

// errStopped reports an iteration cut short because the run was torn down.
var errStopped = errors.New("run stopped")

// Config describes one benchmark run.
type Config struct {
	Depth      int // levels below each iteration root
	Fanout     int // children per node
	Iterations int // trees built and torn down, split across workers
	Workers    int
	Actions    int // cleanup actions attached to every node

	// Intersect links every leaf to its parent and its grandparent
	// through Intersection instead of Define.
	Intersect bool
}

// Validate checks cfg for values the runner cannot use.
func (c Config) Validate() error {
	switch {
	case c.Depth < 0:
		return errors.New("depth must be >= 0")
	case c.Fanout < 1:
		return errors.New("fanout must be >= 1")
	case c.Iterations < 1:
		return errors.New("iterations must be >= 1")
	case c.Workers < 1:
		return errors.New("workers must be >= 1")
	case c.Actions < 0:
		return errors.New("actions must be >= 0")
	}
	return nil
}

// Result summarizes a run.
type Result struct {
	Iterations int64
	Lifetimes  int64
	ActionsRun int64
	Elapsed    time.Duration
	Before     lifetime.PoolStats
	After      lifetime.PoolStats
}

// PerLifetime is the mean wall time spent per lifetime created.
func (r Result) PerLifetime() time.Duration {
	if r.Lifetimes == 0 {
		return 0
	}
	return r.Elapsed / time.Duration(r.Lifetimes)
}

// Run builds and terminates cfg.Iterations trees on cfg.Workers goroutines.
// Cancelling ctx stops the run early; the partial result is still returned.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid config: %w", err)
	}

	root, err := lifetime.Define(lifetime.Eternal(), "bench")
	if err != nil {
		return Result{}, err
	}
	defer root.Terminate()

	group, err := lifetime.NewGroup(root.Lifetime())
	if err != nil {
		return Result{}, err
	}
	stop := context.AfterFunc(ctx, root.Terminate)
	defer stop()

	var (
		res      Result
		iters    atomic.Int64
		created  atomic.Int64
		ran      atomic.Int64
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() { firstErr = err })
		root.Terminate()
	}

	res.Before = lifetime.Stats()
	start := time.Now()

	var workers sync.WaitGroup
	for w := range cfg.Workers {
		share := cfg.Iterations / cfg.Workers
		if w < cfg.Iterations%cfg.Workers {
			share++
		}
		workers.Add(1)
		err := group.TryGo(func(wctx context.Context) {
			defer workers.Done()
			for range share {
				if wctx.Err() != nil {
					return
				}
				n, err := iteration(group.Lifetime(), cfg, &ran)
				created.Add(n)
				if errors.Is(err, errStopped) {
					return
				}
				if err != nil {
					fail(err)
					return
				}
				iters.Add(1)
			}
		})
		if err != nil {
			workers.Done()
			break
		}
	}

	// Workers own their share; the group is only shut down once they are
	// done or the run has been torn down.
	workers.Wait()
	group.ShutdownAndWait()

	res.Elapsed = time.Since(start)
	res.After = lifetime.Stats()
	res.Iterations = iters.Load()
	res.Lifetimes = created.Load()
	res.ActionsRun = ran.Load()

	slog.Debug("bench finished",
		slog.Int64("iterations", res.Iterations),
		slog.Int64("lifetimes", res.Lifetimes),
		slog.Duration("elapsed", res.Elapsed))

	if firstErr != nil {
		return res, firstErr
	}
	// Actions registered after an early cancellation never run, so the
	// count only has to balance for a complete run.
	if ctx.Err() == nil {
		if res.Iterations != int64(cfg.Iterations) {
			return res, fmt.Errorf("completed %d iterations, want %d", res.Iterations, cfg.Iterations)
		}
		if want := res.Lifetimes * int64(cfg.Actions); res.ActionsRun != want {
			return res, fmt.Errorf("ran %d actions, want %d", res.ActionsRun, want)
		}
	}
	return res, nil
}

// iteration builds one tree under parent, terminates it, and returns the
// number of lifetimes created. It returns errStopped when the tree was torn
// down from above before it was complete.
func iteration(parent *lifetime.Lifetime, cfg Config, ran *atomic.Int64) (int64, error) {
	top, err := parent.DefineNested("iteration")
	if err != nil {
		if errors.Is(err, lifetime.ErrTerminated) {
			return 0, errStopped
		}
		return 0, err
	}

	var count int64
	var build func(l, grand *lifetime.Lifetime, depth int) error
	build = func(l, grand *lifetime.Lifetime, depth int) error {
		count++
		for range cfg.Actions {
			l.OnTerminate(func() { ran.Add(1) })
		}
		if depth == cfg.Depth {
			return nil
		}
		for range cfg.Fanout {
			var (
				child *lifetime.Definition
				err   error
			)
			if cfg.Intersect && grand != nil && depth+1 == cfg.Depth {
				child, err = lifetime.IntersectionLabeled("leaf", l, grand)
			} else {
				child, err = l.DefineNested("")
			}
			if err != nil {
				return err
			}
			if err := build(child.Lifetime(), l, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	err = build(top.Lifetime(), nil, 0)
	stopped := top.IsTerminated()
	top.Terminate()
	switch {
	case errors.Is(err, lifetime.ErrTerminated), stopped:
		return count, errStopped
	case err != nil:
		return count, err
	}
	return count, nil
}
