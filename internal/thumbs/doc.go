// Package thumbs provides the in-memory thumbnail cache and the
// single-flight thumbnail generator.
//
// The cache is bounded both by estimated resident byte cost and by entry
// count, evicting least-recently-used entries to satisfy both. The
// generator guarantees at most one physical decode-resize-encode operation
// per source image at any time: concurrent requests for the same image are
// queued and all receive the produced thumbnail. Generated thumbnails are
// persisted to disk best-effort so later requests decode the small file
// instead of the full scan.
package thumbs
