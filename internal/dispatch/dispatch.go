package dispatch

import "sync"

// Dispatcher executes submitted functions serially on a dedicated goroutine.
type Dispatcher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

// New creates a Dispatcher and starts its run loop.
func New() *Dispatcher {
	d := &Dispatcher{done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()
		fn()
	}
}

// Async enqueues fn for execution after all previously submitted
// functions. The queue is unbounded, so a dispatched function may itself
// call Async without blocking the run loop. Calls after Close are dropped.
func (d *Dispatcher) Async(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.queue = append(d.queue, fn)
	d.cond.Signal()
}

// Sync enqueues fn and waits for it to finish. Useful in tests to flush the
// queue. Must not be called from within a dispatched function.
func (d *Dispatcher) Sync(fn func()) {
	ch := make(chan struct{})
	d.Async(func() {
		fn()
		close(ch)
	})
	select {
	case <-ch:
	case <-d.done:
	}
}

// Close stops the run loop after draining already submitted functions.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.cond.Signal()
	d.mu.Unlock()
	<-d.done
}
