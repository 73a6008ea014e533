package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_gallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scan_gallery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scan_gallery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Index metrics
var (
	IndexItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scan_gallery_index_items",
			Help: "Number of items in the canonical gallery index",
		},
	)

	IndexGroups = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scan_gallery_index_groups",
			Help: "Number of temporal groups derived from the index",
		},
	)

	IndexRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_gallery_index_refresh_total",
			Help: "Total number of full index refreshes",
		},
		[]string{"trigger", "status"}, // trigger: "startup", "watcher", "manual", "scan"
	)

	IndexRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scan_gallery_index_refresh_duration_seconds",
			Help:    "Duration of full index refreshes in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	IndexNotificationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_gallery_index_notifications_total",
			Help: "Total number of delta notifications delivered to subscribers",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_gallery_watcher_events_total",
			Help: "Total number of directory change events received",
		},
		[]string{"type"}, // "appeared" or "disappeared"
	)

	WatcherUnknownChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_gallery_watcher_unknown_changes_total",
			Help: "Changes not explained by in-process mutations, each forcing a refresh",
		},
		[]string{"type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_gallery_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_gallery_thumbnail_generations_total",
			Help: "Total number of physical thumbnail generation operations",
		},
		[]string{"status"}, // "success", "error"
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scan_gallery_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail decode+resize+encode duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	ThumbnailDiskHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_gallery_thumbnail_disk_hits_total",
			Help: "Thumbnail requests served from the persisted thumbnail file",
		},
	)

	ThumbnailCoalescedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_gallery_thumbnail_coalesced_total",
			Help: "Thumbnail requests coalesced onto an already in-flight generation",
		},
	)

	ThumbnailPersistErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_gallery_thumbnail_persist_errors_total",
			Help: "Best-effort thumbnail persistence failures",
		},
	)
)

// Cache metrics
var (
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_gallery_cache_hits_total",
			Help: "In-memory thumbnail cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_gallery_cache_misses_total",
			Help: "In-memory thumbnail cache misses",
		},
	)

	CacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_gallery_cache_evictions_total",
			Help: "Entries evicted from the in-memory thumbnail cache",
		},
	)

	CacheResidentBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scan_gallery_cache_resident_bytes",
			Help: "Estimated resident cost of the in-memory thumbnail cache",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scan_gallery_cache_entries",
			Help: "Number of entries in the in-memory thumbnail cache",
		},
	)
)

// Metadata store metrics
var (
	MetadataQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_gallery_metadata_queries_total",
			Help: "Total number of metadata store queries",
		},
		[]string{"operation", "status"},
	)

	MetadataQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scan_gallery_metadata_query_duration_seconds",
			Help:    "Metadata store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// PDF metrics
var (
	PDFAssembliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_gallery_pdf_assemblies_total",
			Help: "Total number of PDF assembly operations",
		},
		[]string{"status"},
	)

	PDFPagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_gallery_pdf_pages_total",
			Help: "Total number of pages rendered into PDFs",
		},
	)
)

// Store metrics
var (
	StoreWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_gallery_store_writes_total",
			Help: "Total number of scan image writes",
		},
		[]string{"status"},
	)

	StoreDeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_gallery_store_deletes_total",
			Help: "Total number of gallery item deletions",
		},
		[]string{"status"},
	)
)

// Memory monitor metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scan_gallery_memory_usage_ratio",
			Help: "Heap usage as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scan_gallery_memory_paused",
			Help: "Whether background work is paused for memory pressure (0 or 1)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_gallery_memory_gc_pauses_total",
			Help: "Total number of forced GC cycles under memory pressure",
		},
	)
)
