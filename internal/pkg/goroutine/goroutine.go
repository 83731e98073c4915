package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/irnotify/internal/pkg/stacktrace"
)

// DefaultMaxGoroutine is multiplied by NumCPU when NewManager receives a non-positive limit.
const DefaultMaxGoroutine int = 100

// Manager owns the long-lived background jobs of the process (queue consumers,
// the dispatch scheduler) and bounds how many may run at once.
//
// Errors returned by jobs are collected and reported by Wait.
type Manager struct {
	mu     sync.Mutex
	errs   []error
	wg     sync.WaitGroup
	sema   chan struct{}
	closed bool
}

// NewManager creates a Manager that runs at most maxGoroutine jobs at once.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	return &Manager{sema: make(chan struct{}, maxGoroutine)}
}

// Go starts f in a goroutine when a slot is free. A full or closed manager
// refuses the job and reports false.
func (g *Manager) Go(ctx context.Context, name string, f func(ctx context.Context) error) bool {
	if g == nil {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		slog.WarnContext(ctx, "goroutine manager is closed, job not started", "job", name)
		return false
	}

	select {
	case g.sema <- struct{}{}:
	default:
		slog.WarnContext(ctx, "maximum goroutine limit reached, job not started", "job", name)
		return false
	}

	g.wg.Go(func() {
		defer func() { <-g.sema }()

		if err := g.run(ctx, name, f); err != nil {
			g.mu.Lock()
			g.errs = append(g.errs, fmt.Errorf("%s: %w", name, err))
			g.mu.Unlock()
		}
	})

	return true
}

func (g *Manager) run(ctx context.Context, name string, f func(ctx context.Context) error) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic occurred in goroutine", "job", name, "panic", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic occurred in goroutine", "job", name, "panic", rvr, "stack", string(stack))
			}
			err = fmt.Errorf("panic: %v", rvr)
		}
	}()

	if ctx.Err() != nil {
		slog.WarnContext(ctx, "goroutine canceled before start", "job", name, "because", ctx.Err())
		return nil
	}

	if err := f(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Wait stops accepting jobs, blocks until running ones finish and returns their errors.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
