// Package sta runs work on a single OS thread. COM capability handles
// carry single-threaded-apartment affinity: the session must be
// created and used from one thread, so every operation against it is
// funneled through a Dispatcher.
package sta

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/winvd/winvd/internal/logging"
)

var log = logging.L("sta")

// ErrStopped is returned by Do after the dispatcher has shut down.
var ErrStopped = errors.New("sta: dispatcher stopped")

type task struct {
	fn   func() error
	done chan error
}

// Dispatcher owns one goroutine pinned to its OS thread and executes
// submitted functions on it in submission order.
type Dispatcher struct {
	queue     chan task
	accepting atomic.Bool
	wg        sync.WaitGroup
	stopOnce  sync.Once
	stopChan  chan struct{}
}

// New starts the dispatcher thread. queueSize bounds pending tasks.
func New(queueSize int) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		queue:    make(chan task, queueSize),
		stopChan: make(chan struct{}),
	}
	d.accepting.Store(true)

	d.wg.Add(1)
	go d.worker()
	return d
}

// Do runs fn on the dispatcher thread and waits for its result.
// Tasks run strictly in submission order; there is no cooperative
// cancellation once fn has started.
func (d *Dispatcher) Do(fn func() error) error {
	if !d.accepting.Load() {
		return ErrStopped
	}

	t := task{fn: fn, done: make(chan error, 1)}
	select {
	case d.queue <- t:
	case <-d.stopChan:
		return ErrStopped
	}

	select {
	case err := <-t.done:
		return err
	case <-d.stopChan:
		return ErrStopped
	}
}

// Shutdown stops accepting work, runs queued tasks to completion and
// waits for the worker to exit, respecting the context deadline.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	d.accepting.Store(false)
	d.stopOnce.Do(func() {
		close(d.stopChan)
	})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("dispatcher shutdown timed out")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	// The thread is pinned for the dispatcher's whole life and is
	// intentionally never unlocked: COM state initialized on it must
	// not migrate to another goroutine's thread.
	runtime.LockOSThread()

	for {
		select {
		case t := <-d.queue:
			d.runTask(t)
		case <-d.stopChan:
			// Drain what was already queued.
			for {
				select {
				case t := <-d.queue:
					d.runTask(t)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) runTask(t task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", "panic", r, "stack", string(debug.Stack()))
			t.done <- fmt.Errorf("sta: task panicked: %v", r)
		}
	}()
	t.done <- t.fn()
}
