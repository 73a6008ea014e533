package notify

import (
	"path/filepath"
	"strings"
	"time"

	"scan-gallery/internal/logging"
	"scan-gallery/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow is the quiet period before a burst of raw events is
// flushed as one batch. Scan pipelines write several files back to back;
// one refresh decision per burst is enough.
const debounceWindow = 200 * time.Millisecond

// debounceMaxWait caps how long a batch waits behind a sustained event
// stream, such as a long multi-page scan session writing faster than the
// quiet window.
const debounceMaxWait = 2 * time.Second

// FSWatcher is a Notifier backed by fsnotify, watching a single directory
// non-recursively.
type FSWatcher struct {
	dir     string
	watcher *fsnotify.Watcher
	done    chan struct{}

	appeared    *debouncer
	disappeared *debouncer
}

// NewFSWatcher creates a notifier for dir. The watch starts on Start.
func NewFSWatcher(dir string) *FSWatcher {
	return &FSWatcher{dir: dir, done: make(chan struct{})}
}

// Start begins watching and delivering debounced batches to h.
func (w *FSWatcher) Start(h Handler) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher
	w.appeared = newDebouncer(debounceWindow, debounceMaxWait, h.FilesAppeared)
	w.disappeared = newDebouncer(debounceWindow, debounceMaxWait, h.FilesDisappeared)

	go w.processEvents()
	logging.Debug("FSWatcher started on %s", w.dir)
	return nil
}

func (w *FSWatcher) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()

		case <-w.done:
			return
		}
	}
}

func (w *FSWatcher) handleEvent(event fsnotify.Event) {
	// hidden files are never gallery content; in particular the temp
	// file behind every atomic scan write is created and renamed away
	// here, and forwarding it would turn each save into a phantom
	// appearance
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}
	switch {
	case event.Op&fsnotify.Create != 0:
		w.appeared.add(event.Name)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// a rename out of the folder is a disappearance from its point of view
		w.disappeared.add(event.Name)
	}
}

// Close stops the watch. Pending debounced batches are dropped; the next
// full refresh reconciles anything missed.
func (w *FSWatcher) Close() error {
	close(w.done)
	if w.appeared != nil {
		w.appeared.stop()
	}
	if w.disappeared != nil {
		w.disappeared.stop()
	}
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
