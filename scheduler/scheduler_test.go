package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/helixdata/mdkit/logger"
)

func testScheduler(t *testing.T) Scheduler {
	t.Helper()
	s := New(logger.NewNop())
	t.Cleanup(s.Close)
	return s
}

func TestNewTask(t *testing.T) {
	ran := false
	task := NewTask("demo", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if task.Name() != "demo" {
		t.Errorf("name = %q", task.Name())
	}
	if err := task.Run(context.Background()); err != nil || !ran {
		t.Errorf("run = %v, ran = %v", err, ran)
	}
}

func TestScheduler_Every_Validation(t *testing.T) {
	s := testScheduler(t)

	if _, err := s.Every(500*time.Millisecond, NewTask("fast", nil)); err == nil {
		t.Error("sub-second interval should be rejected")
	}
	if _, err := s.Every(time.Second, nil); !errors.Is(err, ErrNilTask) {
		t.Errorf("nil task error = %v", err)
	}
}

func TestScheduler_AddSpec_Invalid(t *testing.T) {
	s := testScheduler(t)
	if _, err := s.AddSpec("not a spec", NewTask("x", func(context.Context) error { return nil })); err == nil {
		t.Error("invalid spec should error")
	}
}

func TestScheduler_EveryRuns(t *testing.T) {
	s := testScheduler(t)

	var runs atomic.Int32
	_, err := s.Every(time.Second, NewTask("tick", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	s.Start()

	deadline := time.After(3 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("task did not run within 3s")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestScheduler_Remove(t *testing.T) {
	s := testScheduler(t)

	var runs atomic.Int32
	id, err := s.Every(time.Second, NewTask("removed", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	s.Remove(id)
	s.Start()

	time.Sleep(1500 * time.Millisecond)
	if runs.Load() != 0 {
		t.Errorf("removed task ran %d times", runs.Load())
	}
}

func TestScheduler_CloseCancelsTaskContext(t *testing.T) {
	s := New(logger.NewNop())

	started := make(chan struct{})
	var sawCancel atomic.Bool
	s.Every(time.Second, NewTask("blocker", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
		return ctx.Err()
	}))
	s.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("task did not start")
	}

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("close did not return")
	}
	if !sawCancel.Load() {
		t.Error("task context was not canceled on close")
	}
}

func TestScheduler_ClosedRejectsScheduling(t *testing.T) {
	s := New(logger.NewNop())
	s.Close()
	if _, err := s.Every(time.Second, NewTask("late", func(context.Context) error { return nil })); !errors.Is(err, ErrSchedulerClosed) {
		t.Errorf("schedule after close = %v", err)
	}
}

// ============ Middleware ============

type namedTask struct {
	name string
	fn   func(ctx context.Context) error
}

func (t *namedTask) Name() string                  { return t.name }
func (t *namedTask) Run(ctx context.Context) error { return t.fn(ctx) }

func TestRecovery_ConvertsPanicToError(t *testing.T) {
	task := Recovery(logger.NewNop())(&namedTask{
		name: "panicky",
		fn:   func(ctx context.Context) error { panic("boom") },
	})
	err := task.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("recovered error = %v", err)
	}
}

func TestLogging_PassesErrorThrough(t *testing.T) {
	want := fmt.Errorf("bad day")
	task := Logging(logger.NewNop())(&namedTask{
		name: "failing",
		fn:   func(ctx context.Context) error { return want },
	})
	if err := task.Run(context.Background()); !errors.Is(err, want) {
		t.Errorf("error = %v, want passthrough", err)
	}
}

func TestApply_Order(t *testing.T) {
	var order []string
	mark := func(label string) Middleware {
		return func(next Task) Task {
			return &namedTask{name: next.Name(), fn: func(ctx context.Context) error {
				order = append(order, label)
				return next.Run(ctx)
			}}
		}
	}
	task := apply(&namedTask{name: "t", fn: func(context.Context) error {
		order = append(order, "task")
		return nil
	}}, mark("outer"), mark("inner"))

	task.Run(context.Background())
	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "task" {
		t.Errorf("execution order = %v", order)
	}
}
