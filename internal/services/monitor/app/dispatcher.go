package app

import (
	"context"
	"sync"
)

// Dispatcher is the UI-owning context: a single goroutine runs every posted
// callback in order. Sink calls and screen state changes only happen here.
type Dispatcher struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

func NewDispatcher(buffer int) *Dispatcher {
	if buffer < 1 {
		buffer = 64
	}
	return &Dispatcher{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.once.Do(func() { close(d.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-d.queue:
			fn()
		}
	}
}

// Post enqueues fn. It returns false if the dispatcher has stopped or ctx
// ended before fn could be queued.
func (d *Dispatcher) Post(ctx context.Context, fn func()) bool {
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.queue <- fn:
		return true
	case <-d.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Call posts fn and waits until it has run.
func (d *Dispatcher) Call(ctx context.Context, fn func()) bool {
	ran := make(chan struct{})
	if !d.Post(ctx, func() {
		defer close(ran)
		fn()
	}) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-d.done:
		return false
	case <-ctx.Done():
		return false
	}
}
