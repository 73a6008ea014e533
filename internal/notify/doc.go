// Package notify defines the directory-change notification interface the
// gallery engine consumes, and provides an fsnotify-backed implementation.
//
// The engine never talks to inotify or FSEvents directly: it only receives
// batches of appeared and disappeared paths. Raw watcher events are
// debounced so a burst of writes collapses into one batch.
package notify
