package gallery

import (
	"path/filepath"
	"strings"

	"scan-gallery/internal/logging"
	"scan-gallery/internal/metrics"
)

// Watcher reconciles directory change notifications against the in-memory
// item list. It never patches the index incrementally: when a reported
// change cannot be explained by mutations this process already made, it
// triggers a full refresh, which recomputes truth from disk. Any
// mis-classification therefore self-heals on the next refresh.
type Watcher struct {
	folder  string
	index   *Index
	refresh func()
}

// NewWatcher creates a watcher for the resolved gallery folder. refresh is
// invoked, possibly redundantly, whenever an unknown change is detected.
func NewWatcher(folder string, index *Index, refresh func()) *Watcher {
	return &Watcher{folder: folder, index: index, refresh: refresh}
}

// FilesAppeared handles paths reported as newly present. A write performed
// by this process is already in the index when the notification arrives and
// produces no refresh.
func (w *Watcher) FilesAppeared(paths []string) {
	paths = relevantPaths(paths)
	if len(paths) == 0 {
		return
	}
	metrics.WatcherEventsTotal.WithLabelValues("appeared").Inc()
	logging.Debug("Watcher: added %v", paths)

	unknown := 0
	for _, p := range paths {
		if !w.index.Contains(resolvePath(p)) {
			unknown++
		}
	}
	if unknown > 0 {
		metrics.WatcherUnknownChangesTotal.WithLabelValues("appeared").Add(float64(unknown))
		w.refresh()
	}
}

// FilesDisappeared handles paths reported as removed. A path is an unknown
// change when its resolved form either does not start with the gallery
// folder prefix or is still present in the item list. Deleted files cannot
// be symlink-resolved, so an unresolvable path frequently fails the prefix
// test; treating that as "might still be ours" deliberately prefers a
// spurious refresh over silently diverging from disk state.
func (w *Watcher) FilesDisappeared(paths []string) {
	paths = relevantPaths(paths)
	if len(paths) == 0 {
		return
	}
	metrics.WatcherEventsTotal.WithLabelValues("disappeared").Inc()
	logging.Debug("Watcher: removed %v", paths)

	unknown := 0
	for _, p := range paths {
		resolved := resolvePath(p)
		if !strings.HasPrefix(resolved, w.folder+string(filepath.Separator)) ||
			w.index.Contains(resolved) {
			unknown++
		}
	}
	if unknown > 0 {
		metrics.WatcherUnknownChangesTotal.WithLabelValues("disappeared").Add(float64(unknown))
		w.refresh()
	}
}

// relevantPaths drops reported paths that can never be gallery items:
// dot-prefixed names (atomic-write temps, editor droppings) and files
// outside the supported-extension allow-list. The atomic-write temp in
// particular would otherwise be gone again by flush time, look unknown,
// and force a refresh on every scan this process saves. A real item, by
// contrast, always keeps its image extension in the event name, so this
// never hides an actual change.
func relevantPaths(paths []string) []string {
	var kept []string
	for _, p := range paths {
		base := filepath.Base(p)
		if strings.HasPrefix(base, ".") {
			continue
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(base))] {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// resolvePath returns the symlink-resolved, cleaned form of a path. When
// resolution fails (the file no longer exists) the cleaned input is
// returned unchanged.
func resolvePath(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return filepath.Clean(p)
}
