package notify

import (
	"sync"
	"time"
)

// debouncer coalesces paths reported in quick succession into one batch,
// flushed after a quiet window. A batch is never held longer than maxWait
// past its first event, so a sustained event stream cannot postpone the
// flush forever.
type debouncer struct {
	window  time.Duration
	maxWait time.Duration
	flush   func(paths []string)

	mu       sync.Mutex
	pending  map[string]struct{}
	timer    *time.Timer
	deadline time.Time
}

func newDebouncer(window, maxWait time.Duration, flush func(paths []string)) *debouncer {
	return &debouncer{
		window:  window,
		maxWait: maxWait,
		flush:   flush,
		pending: make(map[string]struct{}),
	}
}

// add records a path and (re)arms the flush timer, capped at the batch
// deadline.
func (d *debouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) == 0 {
		d.deadline = time.Now().Add(d.maxWait)
	}
	d.pending[path] = struct{}{}

	delay := d.window
	if remaining := time.Until(d.deadline); remaining < delay {
		delay = remaining
		if delay < 0 {
			delay = 0
		}
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, d.fire)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	d.timer = nil
	d.mu.Unlock()

	if len(paths) > 0 {
		d.flush(paths)
	}
}

// stop cancels any armed timer without flushing.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
