// Package server exposes the gallery engine over HTTP: item and group
// listings, original/thumbnail/preview file serving, scan ingestion,
// deletion, PDF export, and cache administration.
package server
