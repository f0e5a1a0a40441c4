// Package guiloop marshals work from worker goroutines onto the single GUI
// thread. Every toolkit object is touched only from tasks run by a Loop.
//
// A Loop wraps a Driver, which is the toolkit's own "run this on the main
// thread" primitive. Submit is fire-and-forget; SubmitSync blocks on a Gate
// until the task has finished, or runs the task inline when the caller is
// already on the GUI thread.
package guiloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/phroun/pawconsole/pkg/conlog"
)

var (
	// ErrLoopClosed is returned for work submitted after Close, and to
	// waiters that were still blocked when the loop shut down.
	ErrLoopClosed = errors.New("guiloop: loop closed")
	// ErrAborted is returned by SubmitSyncUntil when its stop channel closes first.
	ErrAborted = errors.New("guiloop: wait aborted")
	// ErrTaskPanicked wraps the value recovered from a panicking task.
	ErrTaskPanicked = errors.New("guiloop: task panicked")
)

// Task is a unit of GUI work. ctx is the loop context: OnLoop(ctx) is true
// and it must not escape the GUI thread.
type Task func(ctx context.Context)

// Driver posts a function to the GUI thread. Functions posted from one
// goroutine must run in the order they were posted.
type Driver interface {
	Post(fn func())
}

// DriverFunc adapts a plain function to Driver.
type DriverFunc func(fn func())

// Post calls f(fn).
func (f DriverFunc) Post(fn func()) { f(fn) }

// Stats counts loop activity.
type Stats struct {
	Submitted uint64 // tasks posted to the driver
	Executed  uint64 // posted tasks that ran
	Inline    uint64 // sync tasks run inline on the GUI thread
	Panicked  uint64 // tasks that panicked
}

type loopKey struct{}

// Loop is the dispatcher in front of a Driver.
type Loop struct {
	driver Driver
	log    *conlog.Logger

	base   context.Context
	cancel context.CancelFunc

	done      chan struct{}
	closeOnce sync.Once

	submitted atomic.Uint64
	executed  atomic.Uint64
	inline    atomic.Uint64
	panicked  atomic.Uint64
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used for task panics and debug tracing.
func WithLogger(log *conlog.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates a loop posting to driver.
func New(driver Driver, opts ...Option) *Loop {
	l := &Loop{
		driver: driver,
		log:    conlog.Discard(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.base, l.cancel = context.WithCancel(context.WithValue(context.Background(), loopKey{}, l))
	return l
}

// FromContext returns the loop whose GUI thread ctx belongs to, or nil.
func FromContext(ctx context.Context) *Loop {
	if ctx == nil {
		return nil
	}
	l, _ := ctx.Value(loopKey{}).(*Loop)
	return l
}

// OnLoop reports whether ctx is this loop's context, i.e. the caller is
// running on the GUI thread inside a task or a callback handed Context().
func (l *Loop) OnLoop(ctx context.Context) bool {
	return FromContext(ctx) == l
}

// Context returns the loop context for toolkit callbacks that run on the
// GUI thread outside of a task (button handlers, key events).
func (l *Loop) Context() context.Context {
	return l.base
}

// Done is closed by Close.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Closed reports whether Close has been called.
func (l *Loop) Closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Close shuts the loop down. Blocked SubmitSync callers return
// ErrLoopClosed; tasks already handed to the driver may still run.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.cancel()
		l.log.DebugCat(conlog.CatLoop, "loop closed")
	})
}

// Stats returns a snapshot of the counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Submitted: l.submitted.Load(),
		Executed:  l.executed.Load(),
		Inline:    l.inline.Load(),
		Panicked:  l.panicked.Load(),
	}
}

// Submit enqueues task and returns immediately.
func (l *Loop) Submit(task Task) error {
	if l.Closed() {
		return ErrLoopClosed
	}
	l.post(task, nil)
	return nil
}

// SubmitSync runs task on the GUI thread and returns once it has finished.
// Called from the GUI thread itself (OnLoop(ctx)), the task runs inline.
// If ctx ends first the task is left to run on its own and ctx.Err() is
// returned.
func (l *Loop) SubmitSync(ctx context.Context, task Task) error {
	return l.SubmitSyncUntil(ctx, nil, task)
}

// SubmitSyncUntil is SubmitSync that also gives up with ErrAborted when
// stop is closed. Callers pass the done channel of the object the task
// targets so teardown never strands them.
func (l *Loop) SubmitSyncUntil(ctx context.Context, stop <-chan struct{}, task Task) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if l.OnLoop(ctx) {
		l.inline.Add(1)
		return l.run(task)
	}
	if l.Closed() {
		return ErrLoopClosed
	}

	gate := NewGate()
	l.post(task, gate)
	return gate.wait(ctx, stop, l.done)
}

func (l *Loop) post(task Task, gate *Gate) {
	l.submitted.Add(1)
	l.driver.Post(func() {
		l.executed.Add(1)
		err := l.run(task)
		if gate != nil {
			gate.Signal(err)
		}
	})
}

// run executes task with the loop context and converts a panic into an
// error so the gate is still signalled.
func (l *Loop) run(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.panicked.Add(1)
			l.log.ErrorCat(conlog.CatLoop, "task panicked: %v", r)
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	task(l.base)
	return nil
}
