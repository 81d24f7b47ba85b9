package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"go.viam.com/test"
)

func TestSpawnReportsError(t *testing.T) {
	handle := Spawn("control", func() error { return errors.New("camera unplugged") })
	test.That(t, handle.Wait(), test.ShouldBeError, errors.New("camera unplugged"))
	test.That(t, handle.Name(), test.ShouldEqual, "control")
}

func TestSpawnCapturesPanic(t *testing.T) {
	handle := Spawn("vision_top", func() error { panic("index out of range") })
	err := handle.Wait()

	var panicErr *PanicError
	test.That(t, errors.As(err, &panicErr), test.ShouldBeTrue)
	test.That(t, panicErr.Value, test.ShouldEqual, "index out of range")
	test.That(t, err.Error(), test.ShouldContainSubstring, `"vision_top" panicked`)
	test.That(t, len(panicErr.Stack), test.ShouldBeGreaterThan, 0)
}

func TestStoppableWorkers(t *testing.T) {
	var stopped atomic.Int32
	panics := make(chan *PanicError, 1)
	workers := NewStoppableWorkersWithContext(context.Background(), func(err *PanicError) { panics <- err },
		func(ctx context.Context) {
			<-ctx.Done()
			stopped.Add(1)
		},
		func(ctx context.Context) { panic("worker failure") },
	)

	panicErr := <-panics
	test.That(t, panicErr.Value, test.ShouldEqual, "worker failure")

	workers.Stop()
	test.That(t, stopped.Load(), test.ShouldEqual, int32(1))
	test.That(t, workers.Context().Err(), test.ShouldNotBeNil)

	// Adding after stop does nothing.
	workers.AddWorkers(func(ctx context.Context) { stopped.Add(1) })
	test.That(t, stopped.Load(), test.ShouldEqual, int32(1))
}

func TestStoppableWorkersWithoutPanicHandler(t *testing.T) {
	var stopped atomic.Int32
	workers := NewStoppableWorkers(
		func(ctx context.Context) { panic("dropped frame") },
		func(ctx context.Context) {
			<-ctx.Done()
			stopped.Add(1)
		},
	)
	workers.Stop()
	test.That(t, stopped.Load(), test.ShouldEqual, int32(1))
}
