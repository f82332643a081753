// Package scheduler runs recurring tasks on fixed intervals or cron specs.
// The orchestrator uses it for per-table background revalidation timers.
//
// Every task runs wrapped in panic recovery and start/finish logging, so a
// misbehaving task can neither crash the process nor fail silently.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/helixdata/mdkit/logger"
)

// Task is a unit of scheduled work
type Task interface {
	// Name identifies the task in logs
	Name() string
	// Run executes the task. The context is canceled when the scheduler
	// closes.
	Run(ctx context.Context) error
}

// NewTask builds a Task from a name and a function
func NewTask(name string, fn func(ctx context.Context) error) Task {
	return &funcTask{name: name, fn: fn}
}

type funcTask struct {
	name string
	fn   func(ctx context.Context) error
}

func (t *funcTask) Name() string                  { return t.name }
func (t *funcTask) Run(ctx context.Context) error { return t.fn(ctx) }

// EntryID identifies a scheduled task for later removal
type EntryID int

// Scheduler manages recurring tasks. Start begins dispatch; tasks added
// before or after Start both run. Close stops dispatch, cancels the context
// passed to tasks, and waits for running tasks to return.
type Scheduler interface {
	// Every schedules the task at a fixed interval. Granularity is one
	// second; sub-second intervals are rejected.
	Every(interval time.Duration, task Task) (EntryID, error)
	// AddSpec schedules the task with a cron expression, six fields with a
	// leading seconds field, e.g. "0 */5 * * * *".
	AddSpec(spec string, task Task) (EntryID, error)
	// Remove unschedules an entry. Unknown ids are ignored.
	Remove(id EntryID)
	Start()
	Close()
}

// New creates a scheduler. Extra middlewares run inside the built-in
// recovery and logging, in the order given.
func New(log logger.Logger, mws ...Middleware) Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &manager{
		cron:        cron.New(cron.WithSeconds()),
		logger:      log,
		middlewares: append([]Middleware{Recovery(log), Logging(log)}, mws...),
		ctx:         ctx,
		cancel:      cancel,
	}
}

type manager struct {
	cron        *cron.Cron
	logger      logger.Logger
	middlewares []Middleware
	ctx         context.Context
	cancel      context.CancelFunc
	closed      atomic.Bool
}

// job adapts a wrapped Task to the cron runner. Errors are already logged
// by the middleware chain.
type job struct {
	task Task
	ctx  context.Context
}

func (j *job) Run() {
	_ = j.task.Run(j.ctx)
}

func (m *manager) Every(interval time.Duration, task Task) (EntryID, error) {
	if m.closed.Load() {
		return 0, ErrSchedulerClosed
	}
	if task == nil {
		return 0, ErrNilTask
	}
	if interval < time.Second {
		return 0, ErrInvalidInterval(interval)
	}

	wrapped := apply(task, m.middlewares...)
	id := m.cron.Schedule(cron.Every(interval), &job{task: wrapped, ctx: m.ctx})
	m.logger.Info("task scheduled",
		zap.String("task", task.Name()),
		zap.Duration("interval", interval),
	)
	return EntryID(id), nil
}

func (m *manager) AddSpec(spec string, task Task) (EntryID, error) {
	if m.closed.Load() {
		return 0, ErrSchedulerClosed
	}
	if task == nil {
		return 0, ErrNilTask
	}

	wrapped := apply(task, m.middlewares...)
	id, err := m.cron.AddJob(spec, &job{task: wrapped, ctx: m.ctx})
	if err != nil {
		return 0, ErrBadSpec(spec, err)
	}
	m.logger.Info("task scheduled",
		zap.String("task", task.Name()),
		zap.String("spec", spec),
	)
	return EntryID(id), nil
}

func (m *manager) Remove(id EntryID) {
	m.cron.Remove(cron.EntryID(id))
}

func (m *manager) Start() {
	m.cron.Start()
}

func (m *manager) Close() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	// cancel first so long-running tasks see the shutdown, then wait
	m.cancel()
	<-m.cron.Stop().Done()
	m.logger.Info("scheduler stopped")
}
