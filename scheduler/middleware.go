package scheduler

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/helixdata/mdkit/logger"
	"github.com/helixdata/mdkit/routine"
)

// Middleware wraps a Task with additional behavior
type Middleware func(Task) Task

// apply wraps from last to first, so apply(t, a, b) runs a(b(t))
func apply(t Task, mws ...Middleware) Task {
	for i := len(mws) - 1; i >= 0; i-- {
		t = mws[i](t)
	}
	return t
}

// Recovery converts a task panic into an error, keeping the scheduler and
// the process alive.
func Recovery(log logger.Logger) Middleware {
	return func(next Task) Task {
		return &funcTask{
			name: next.Name(),
			fn: func(ctx context.Context) (err error) {
				defer func() {
					if r := recover(); r != nil {
						log.Error("task panicked",
							zap.String("task", next.Name()),
							zap.Any("panic", r),
							zap.String("stack", string(debug.Stack())),
						)
						err = routine.ErrPanic(r)
					}
				}()
				return next.Run(ctx)
			},
		}
	}
}

// Logging logs task start, duration and outcome
func Logging(log logger.Logger) Middleware {
	return func(next Task) Task {
		return &funcTask{
			name: next.Name(),
			fn: func(ctx context.Context) error {
				start := time.Now()
				log.Debug("task started", zap.String("task", next.Name()))

				err := next.Run(ctx)

				duration := time.Since(start)
				if err != nil {
					log.Error("task failed",
						zap.String("task", next.Name()),
						zap.Duration("duration", duration),
						zap.Error(err),
					)
				} else {
					log.Debug("task completed",
						zap.String("task", next.Name()),
						zap.Duration("duration", duration),
					)
				}
				return err
			},
		}
	}
}
