// Package metadata caches per-file image metadata (pixel dimensions and the
// EXIF capture time) in a SQLite database keyed by path and mtime, so
// repeated probes never re-decode image headers. Probes for the same path
// are deduplicated with singleflight.
package metadata
