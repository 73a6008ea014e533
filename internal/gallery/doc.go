// Package gallery implements the local gallery engine: the canonical item
// index for a flat folder of scanned images, delta notifications to
// subscribers, temporal display groups, watcher-driven reconciliation with
// out-of-band filesystem changes, and orchestration of the thumbnail and
// metadata caches.
package gallery
