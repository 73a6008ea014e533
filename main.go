package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scan-gallery/internal/gallery"
	"scan-gallery/internal/logging"
	"scan-gallery/internal/memory"
	"scan-gallery/internal/metadata"
	"scan-gallery/internal/metrics"
	"scan-gallery/internal/middleware"
	"scan-gallery/internal/notify"
	"scan-gallery/internal/server"
	"scan-gallery/internal/startup"
	"scan-gallery/internal/thumbs"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Apply GOMEMLIMIT before anything allocates in earnest, then keep
	// an eye on heap pressure while thumbnails churn
	memory.ConfigureFromEnv()
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	defer monitor.Stop()

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
	}

	// libvips accelerates thumbnailing when present; imaging covers
	// the rest
	if err := thumbs.InitVips(); err != nil {
		logging.Warn("libvips unavailable, using pure-Go image pipeline: %v", err)
	}
	defer thumbs.ShutdownVips()

	// Initialize the metadata cache
	meta, err := metadata.New(context.Background(), config.MetadataPath)
	if err != nil {
		startup.LogFatal("Failed to initialize metadata cache: %v", err)
	}
	defer meta.Close()

	// Pick the change notifier
	var notifier notify.Notifier = notify.Nop{}
	if config.WatchEnabled {
		notifier = notify.NewFSWatcher(config.GalleryDir)
	}

	// Initialize the gallery engine
	startup.LogEngineInit(config.GalleryDir)
	engineStart := time.Now()
	engine, err := gallery.NewEngine(gallery.Config{
		GalleryDir:       config.GalleryDir,
		CacheRoot:        config.CacheRoot,
		Format:           gallery.OutputFormat(config.OutputFormat),
		CacheMaxCost:     config.CacheMaxCost,
		CacheMaxEntries:  config.CacheMaxEntries,
		ThumbConcurrency: config.ThumbWorkers,
		Throttle:         monitor,
	}, notifier, meta)
	if err != nil {
		startup.LogFatal("Failed to initialize gallery engine: %v", err)
	}
	startup.LogEngineReady(len(engine.Items()), time.Since(engineStart))

	// Initialize handlers
	h := server.New(engine, config)

	// Setup router
	router := setupRouter(h, config)

	// Log routes dynamically
	startup.LogHTTPRoutes(router)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogItemRoutes = config.LogItemRoutes
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)

	// Apply metrics middleware
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, engine)

	// Start server
	startup.LogServerStarted(config.Port, time.Since(startTime))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *server.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	if config.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	// Gallery API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/items", h.ListItems).Methods("GET")
	api.HandleFunc("/groups", h.ListGroups).Methods("GET")
	api.HandleFunc("/file/{name}", h.GetFile).Methods("GET")
	api.HandleFunc("/preview/{name}", h.GetPreview).Methods("GET")
	api.HandleFunc("/thumbnail/{name}", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/size/{name}", h.GetItemSize).Methods("GET")
	api.HandleFunc("/item/{name}", h.DeleteItem).Methods("DELETE")
	api.HandleFunc("/scans", h.SaveScans).Methods("POST")
	api.HandleFunc("/refresh", h.TriggerRefresh).Methods("POST")
	api.HandleFunc("/pdf", h.GeneratePDF).Methods("POST")
	api.HandleFunc("/cache/clear", h.ClearCache).Methods("POST")

	if config.SeedEnabled {
		api.HandleFunc("/seed", h.SeedGallery).Methods("POST")
	}

	return r
}

func handleShutdown(srv *http.Server, engine *gallery.Engine) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	}

	engine.Close()
	startup.LogShutdownComplete()
}
