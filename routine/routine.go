// Package routine provides safe goroutine execution with panic recovery.
//
// It prevents direct use of `go func()` from crashing the process when a
// panic occurs, by wrapping goroutine execution with recovery logic.
package routine

import (
	"context"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"github.com/helixdata/mdkit/logger"
)

// Runner executes functions in goroutines with panic recovery and tracks
// them so callers can wait for completion on shutdown.
type Runner interface {
	// Go executes fn in a new goroutine with panic recovery
	Go(fn func())

	// GoWithContext executes fn in a new goroutine with context and panic recovery
	GoWithContext(ctx context.Context, fn func(ctx context.Context))

	// GoNamed executes fn in a new goroutine with panic recovery;
	// the name identifies the routine in panic logs
	GoNamed(name string, fn func())

	// GoNamedWithContext executes a named fn with context in a new goroutine
	GoNamedWithContext(ctx context.Context, name string, fn func(ctx context.Context))

	// Wait blocks until every goroutine started by this runner has returned
	Wait()
}

type runner struct {
	log logger.Logger
	wg  sync.WaitGroup
}

// New creates a Runner bound to the given logger
func New(log logger.Logger) Runner {
	return &runner{log: log}
}

func (r *runner) Go(fn func()) {
	r.GoNamed("", fn)
}

func (r *runner) GoWithContext(ctx context.Context, fn func(ctx context.Context)) {
	r.GoNamedWithContext(ctx, "", fn)
}

func (r *runner) GoNamed(name string, fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer recoverAndLog(r.log, name)
		fn()
	}()
}

func (r *runner) GoNamedWithContext(ctx context.Context, name string, fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer recoverAndLog(r.log, name)
		fn(ctx)
	}()
}

func (r *runner) Wait() {
	r.wg.Wait()
}

// Go executes fn in a new goroutine with panic recovery, without tracking.
// Use a Runner when the caller needs to wait for completion.
func Go(log logger.Logger, fn func()) {
	GoNamed(log, "", fn)
}

// GoWithContext executes fn with context in a new goroutine with panic
// recovery, without tracking
func GoWithContext(ctx context.Context, log logger.Logger, fn func(ctx context.Context)) {
	GoNamedWithContext(ctx, log, "", fn)
}

// GoNamed executes a named fn in a new goroutine with panic recovery,
// without tracking
func GoNamed(log logger.Logger, name string, fn func()) {
	go func() {
		defer recoverAndLog(log, name)
		fn()
	}()
}

// GoNamedWithContext executes a named fn with context in a new goroutine
// with panic recovery, without tracking
func GoNamedWithContext(ctx context.Context, log logger.Logger, name string, fn func(ctx context.Context)) {
	go func() {
		defer recoverAndLog(log, name)
		fn(ctx)
	}()
}

// recoverAndLog turns a goroutine panic into an error log with the stack
func recoverAndLog(log logger.Logger, name string) {
	if rec := recover(); rec != nil {
		fields := []zap.Field{
			zap.Any("panic", rec),
			zap.String("stack", string(debug.Stack())),
		}
		if name != "" {
			fields = append([]zap.Field{zap.String("routine", name)}, fields...)
		}
		log.Error("goroutine panicked", fields...)
	}
}
