package notify

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recordingHandler struct {
	mu          sync.Mutex
	appeared    [][]string
	disappeared [][]string
	signal      chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{signal: make(chan struct{}, 10)}
}

func (h *recordingHandler) FilesAppeared(paths []string) {
	h.mu.Lock()
	h.appeared = append(h.appeared, paths)
	h.mu.Unlock()
	h.signal <- struct{}{}
}

func (h *recordingHandler) FilesDisappeared(paths []string) {
	h.mu.Lock()
	h.disappeared = append(h.disappeared, paths)
	h.mu.Unlock()
	h.signal <- struct{}{}
}

func (h *recordingHandler) await(t *testing.T) {
	t.Helper()
	select {
	case <-h.signal:
	case <-time.After(10 * time.Second):
		t.Fatal("no notification arrived")
	}
}

func TestFSWatcherReportsCreates(t *testing.T) {
	dir := t.TempDir()
	w := NewFSWatcher(dir)
	h := newRecordingHandler()
	if err := w.Start(h); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Close()

	path := filepath.Join(dir, "new.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	h.await(t)
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.appeared) == 0 {
		t.Fatal("no appeared batch recorded")
	}
	found := false
	for _, batch := range h.appeared {
		for _, p := range batch {
			if p == path {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("created path missing from batches %v", h.appeared)
	}
}

func TestFSWatcherIgnoresAtomicWriteTemp(t *testing.T) {
	dir := t.TempDir()
	w := NewFSWatcher(dir)
	h := newRecordingHandler()
	if err := w.Start(h); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Close()

	// write the way the store does: hidden temp, then rename into place
	tmp, err := os.CreateTemp(dir, ".scan-*")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmp.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
	final := filepath.Join(dir, "page.jpg")
	if err := os.Rename(tmp.Name(), final); err != nil {
		t.Fatal(err)
	}

	h.await(t)
	h.mu.Lock()
	defer h.mu.Unlock()
	sawFinal := false
	for _, batch := range h.appeared {
		for _, p := range batch {
			if p == tmp.Name() {
				t.Errorf("temp path %s leaked into appeared batch %v", tmp.Name(), batch)
			}
			if p == final {
				sawFinal = true
			}
		}
	}
	for _, batch := range h.disappeared {
		for _, p := range batch {
			if p == tmp.Name() {
				t.Errorf("temp path %s leaked into disappeared batch %v", tmp.Name(), batch)
			}
		}
	}
	if !sawFinal {
		t.Errorf("renamed destination missing from batches %v", h.appeared)
	}
}

func TestFSWatcherReportsRemoves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doomed.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewFSWatcher(dir)
	h := newRecordingHandler()
	if err := w.Start(h); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Close()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	h.await(t)
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.disappeared) == 0 {
		t.Fatal("no disappeared batch recorded")
	}
}

func TestFSWatcherStartFailsOnMissingDirectory(t *testing.T) {
	w := NewFSWatcher(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := w.Start(newRecordingHandler()); err == nil {
		w.Close()
		t.Fatal("Start succeeded on a missing directory")
	}
}

func TestNopNotifier(t *testing.T) {
	var n Nop
	if err := n.Start(newRecordingHandler()); err != nil {
		t.Errorf("Nop.Start = %v", err)
	}
	if err := n.Close(); err != nil {
		t.Errorf("Nop.Close = %v", err)
	}
}
