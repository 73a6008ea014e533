package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"scan-gallery/internal/logging"
)

// defaultShare is the fraction of a container memory limit handed to
// the Go heap. The remainder covers libvips decode buffers, the SQLite
// page cache and goroutine stacks, none of which the Go GC sees.
const defaultShare = 0.85

// Limit records how the runtime soft memory limit was derived.
type Limit struct {
	// Bytes is the effective GOMEMLIMIT, zero when unbounded.
	Bytes int64
	// Container is the raw MEMORY_LIMIT value, zero when unset.
	Container int64
	// Share is the fraction of the container limit applied.
	Share float64
	// Source is "GOMEMLIMIT", "MEMORY_LIMIT" or "unset".
	Source string
}

// ConfigureFromEnv derives a soft memory limit from the environment and
// applies it with debug.SetMemoryLimit. Call it before the first large
// allocation.
//
// An explicit GOMEMLIMIT is honored as-is. Otherwise MEMORY_LIMIT, the
// container limit in bytes, is scaled by MEMORY_SHARE (default 0.85)
// and applied. With neither set the heap stays unbounded.
func ConfigureFromEnv() Limit {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		logging.Info("memory: GOMEMLIMIT=%s set by environment", env)
		applied := debug.SetMemoryLimit(-1)
		if applied <= 0 || applied == math.MaxInt64 {
			return Limit{Source: "GOMEMLIMIT"}
		}
		return Limit{Bytes: applied, Source: "GOMEMLIMIT"}
	}

	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("memory: MEMORY_LIMIT not set, heap is unbounded")
		return Limit{Source: "unset"}
	}
	container, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || container <= 0 {
		logging.Warn("memory: ignoring MEMORY_LIMIT=%q: %v", raw, err)
		return Limit{Source: "unset"}
	}

	share := shareFromEnv()
	budget := int64(float64(container) * share)
	debug.SetMemoryLimit(budget)
	logging.Info("memory: GOMEMLIMIT set to %s (%.0f%% of %s container limit)",
		humanBytes(budget), share*100, humanBytes(container))
	return Limit{Bytes: budget, Container: container, Share: share, Source: "MEMORY_LIMIT"}
}

func shareFromEnv() float64 {
	raw := os.Getenv("MEMORY_SHARE")
	if raw == "" {
		return defaultShare
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logging.Warn("memory: ignoring MEMORY_SHARE=%q: %v", raw, err)
		return defaultShare
	}
	if parsed <= 0 || parsed > 1 {
		logging.Warn("memory: MEMORY_SHARE=%q outside (0, 1], using %.2f", raw, defaultShare)
		return defaultShare
	}
	return parsed
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	value, exp := float64(n)/unit, 0
	for value >= unit && exp < 5 {
		value /= unit
		exp++
	}
	return strconv.FormatFloat(value, 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
