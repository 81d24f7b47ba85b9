package utils

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// PanicError is reported by a JoinHandle whose goroutine panicked.
type PanicError struct {
	Name  string
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%q panicked: %v", e.Name, e.Value)
}

// JoinHandle reports the outcome of a goroutine started with Spawn.
type JoinHandle struct {
	name string
	done chan struct{}
	err  error
}

// Spawn runs f in a new goroutine. A panic inside f is recovered and reported as a *PanicError by
// Wait instead of crashing the process.
func Spawn(name string, f func() error) *JoinHandle {
	handle := &JoinHandle{name: name, done: make(chan struct{})}
	go func() {
		defer close(handle.done)
		defer recoverPanic(name, func(err *PanicError) { handle.err = err })
		handle.err = f()
	}()
	return handle
}

// recoverPanic must be deferred directly. It hands a recovered panic to report, if set.
func recoverPanic(name string, report func(*PanicError)) {
	value := recover()
	if value == nil || report == nil {
		return
	}
	report(&PanicError{Name: name, Value: value, Stack: debug.Stack()})
}

// Name returns the name the goroutine was spawned with.
func (handle *JoinHandle) Name() string {
	return handle.name
}

// Done is closed once the goroutine returned.
func (handle *JoinHandle) Done() <-chan struct{} {
	return handle.done
}

// Wait blocks until the goroutine returned and returns its error.
func (handle *JoinHandle) Wait() error {
	<-handle.done
	return handle.err
}

// StoppableWorkers is a collection of goroutines that can be stopped at a later time.
type StoppableWorkers interface {
	AddWorkers(...func(context.Context))
	Stop()
	Context() context.Context
}

// stoppableWorkersImpl is only handed out through the interface since it holds a sync.WaitGroup.
type stoppableWorkersImpl struct {
	mu                      sync.Mutex
	cancelCtx               context.Context
	cancelFunc              func()
	activeBackgroundWorkers sync.WaitGroup
	onPanic                 func(*PanicError)
}

// NewStoppableWorkers runs the functions in separate goroutines. They can be stopped later.
func NewStoppableWorkers(funcs ...func(context.Context)) StoppableWorkers {
	return NewStoppableWorkersWithContext(context.Background(), nil, funcs...)
}

// NewStoppableWorkersWithContext derives the workers' context from ctx. onPanic, if set, receives
// panics of individual workers; the remaining workers keep running.
func NewStoppableWorkersWithContext(
	ctx context.Context,
	onPanic func(*PanicError),
	funcs ...func(context.Context),
) StoppableWorkers {
	cancelCtx, cancelFunc := context.WithCancel(ctx)
	workers := &stoppableWorkersImpl{cancelCtx: cancelCtx, cancelFunc: cancelFunc, onPanic: onPanic}
	workers.AddWorkers(funcs...)
	return workers
}

// AddWorkers starts up additional goroutines for each function passed in. If you call this after
// calling Stop(), it will return immediately without starting any new goroutines.
func (sw *stoppableWorkersImpl) AddWorkers(funcs ...func(context.Context)) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.cancelCtx.Err() != nil {
		return
	}

	sw.activeBackgroundWorkers.Add(len(funcs))
	for _, f := range funcs {
		f := f
		go func() {
			defer sw.activeBackgroundWorkers.Done()
			defer recoverPanic("worker", sw.onPanic)
			f(sw.cancelCtx)
		}()
	}
}

// Stop shuts down all the goroutines we started up.
func (sw *stoppableWorkersImpl) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.cancelFunc()
	sw.activeBackgroundWorkers.Wait()
}

// Context gets the context the workers are checking on.
func (sw *stoppableWorkersImpl) Context() context.Context {
	return sw.cancelCtx
}
