// Package metrics defines the Prometheus metrics exported by the gallery
// engine: index refresh runs, thumbnail generation and cache behavior,
// watcher events, PDF assembly, and the HTTP surface.
//
// All metrics are registered with promauto at package load. Use
// InitializeMetrics at startup to pre-populate label combinations so the
// first scrape exports every series.
package metrics
