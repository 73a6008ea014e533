package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, trigger := range []string{"startup", "watcher", "manual"} {
		IndexRefreshTotal.WithLabelValues(trigger, "success")
		IndexRefreshTotal.WithLabelValues(trigger, "error")
	}

	for _, t := range []string{"appeared", "disappeared"} {
		WatcherEventsTotal.WithLabelValues(t)
		WatcherUnknownChangesTotal.WithLabelValues(t)
	}

	for _, status := range []string{"success", "error"} {
		ThumbnailGenerationsTotal.WithLabelValues(status)
		PDFAssembliesTotal.WithLabelValues(status)
		StoreWritesTotal.WithLabelValues(status)
		StoreDeletesTotal.WithLabelValues(status)
	}

	for _, op := range []string{"initialize_schema", "get_dimensions", "upsert", "invalidate"} {
		MetadataQueriesTotal.WithLabelValues(op, "success")
		MetadataQueriesTotal.WithLabelValues(op, "error")
		MetadataQueryDuration.WithLabelValues(op)
	}
}
