package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"scan-gallery/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	GalleryDir string
	CacheRoot  string
	Port       string

	OutputFormat    string
	CacheMaxCost    int64
	CacheMaxEntries int
	ThumbWorkers    int

	WatchEnabled    bool
	MetricsEnabled  bool
	SeedEnabled     bool
	LogItemRoutes   bool
	LogHealthChecks bool

	// Derived paths
	MetadataPath string
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	galleryDir := getEnv("GALLERY_DIR", "/gallery")
	cacheRoot := getEnv("CACHE_ROOT", "/cache")
	port := getEnv("PORT", "8080")
	outputFormat := getEnv("OUTPUT_FORMAT", "jpg")
	cacheMaxCost := getEnvInt64("CACHE_MAX_COST", 50*1000*1000)
	cacheMaxEntries := getEnvInt("CACHE_MAX_ENTRIES", 200)
	thumbWorkers := getEnvInt("THUMB_CONCURRENCY", 1)
	watchEnabled := getEnvBool("WATCH_ENABLED", true)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	seedEnabled := getEnvBool("SEED_ENABLED", false)
	logItemRoutes := getEnvBool("LOG_ITEM_ROUTES", false)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)

	logging.Info("  GALLERY_DIR:       %s", galleryDir)
	logging.Info("  CACHE_ROOT:        %s", cacheRoot)
	logging.Info("  PORT:              %s", port)
	logging.Info("  OUTPUT_FORMAT:     %s", outputFormat)
	logging.Info("  CACHE_MAX_COST:    %d", cacheMaxCost)
	logging.Info("  CACHE_MAX_ENTRIES: %d", cacheMaxEntries)
	logging.Info("  THUMB_CONCURRENCY: %d", thumbWorkers)
	logging.Info("  WATCH_ENABLED:     %v", watchEnabled)
	logging.Info("  METRICS_ENABLED:   %v", metricsEnabled)
	logging.Info("  SEED_ENABLED:      %v", seedEnabled)
	logging.Info("  LOG_LEVEL:         %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	galleryDir, err := filepath.Abs(galleryDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve gallery directory path: %w", err)
	}
	logging.Info("  Gallery directory (absolute): %s", galleryDir)

	cacheRoot, err = filepath.Abs(cacheRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache root path: %w", err)
	}
	logging.Info("  Cache root (absolute): %s", cacheRoot)

	// the gallery folder is the whole point; not having it is fatal
	if err := ensureDirectory(galleryDir, "gallery"); err != nil {
		return nil, fmt.Errorf("gallery directory error: %w", err)
	}
	if err := ensureDirectory(cacheRoot, "cache"); err != nil {
		return nil, fmt.Errorf("cache root error: %w", err)
	}

	logging.Debug("  Testing cache root write access...")
	if err := testWriteAccess(cacheRoot); err != nil {
		return nil, fmt.Errorf("cache root is not writable: %w", err)
	}
	logging.Info("  [OK] Cache root is writable")

	config := &Config{
		GalleryDir:      galleryDir,
		CacheRoot:       cacheRoot,
		Port:            port,
		OutputFormat:    outputFormat,
		CacheMaxCost:    cacheMaxCost,
		CacheMaxEntries: cacheMaxEntries,
		ThumbWorkers:    thumbWorkers,
		WatchEnabled:    watchEnabled,
		MetricsEnabled:  metricsEnabled,
		SeedEnabled:     seedEnabled,
		LogItemRoutes:   logItemRoutes,
		LogHealthChecks: logHealthChecks,
		MetadataPath:    filepath.Join(cacheRoot, "metadata.db"),
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Watcher: %s", enabledString(config.WatchEnabled))
	logging.Info("    Metrics: %s", enabledString(config.MetricsEnabled))
	logging.Info("    Seeding: %s", enabledString(config.SeedEnabled))

	return config, nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogEngineInit logs gallery engine initialization
func LogEngineInit(galleryDir string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("GALLERY ENGINE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Gallery folder: %s", galleryDir)
}

// LogEngineReady logs successful engine start
func LogEngineReady(items int, duration time.Duration) {
	logging.Info("  [OK] Engine ready with %d items in %v", items, duration)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if !logging.IsDebugEnabled() {
		return
	}

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	logging.Debug("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Debug("    %-7s %s", route.Method, route.Path)
	}
}

// LogServerStarted logs the final startup summary
func LogServerStarted(port string, startupTime time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER READY")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Listening on:  http://0.0.0.0:%s", port)
	logging.Info("  Startup time:  %v", startupTime)
	logging.Info("")
}

// LogShutdownInitiated logs the start of graceful shutdown
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN (%s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownComplete logs the end of graceful shutdown
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
   ____                     ____       _ _
  / ___|  ___ __ _ _ __    / ___| __ _| | | ___ _ __ _   _
  \___ \ / __/ _' | '_ \  | |  _ / _' | | |/ _ \ '__| | | |
   ___) | (_| (_| | | | | | |_| | (_| | | |  __/ |  | |_| |
  |____/ \___\__,_|_| |_|  \____|\__,_|_|_|\___|_|   \__, |
                                                     |___/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}
	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// write access itself was confirmed
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
