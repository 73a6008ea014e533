package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Pool size helpers for the image pipelines. Sizing starts from
// GOMAXPROCS, which tracks container CPU limits (Go 1.19+), not the host
// CPU count.
//
// The IMAGE_WORKERS environment variable overrides every computed count.

// envOverride is the manual worker-count override.
const envOverride = "IMAGE_WORKERS"

// scale computes a worker count as a multiple of the available CPUs,
// clamped to [1, limit]. A limit of 0 means unlimited.
func scale(multiplier float64, limit int) int {
	if override := os.Getenv(envOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			return clamp(count, limit)
		}
	}

	count := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	return clamp(count, limit)
}

func clamp(count, limit int) int {
	if count < 1 {
		count = 1
	}
	if limit > 0 && count > limit {
		count = limit
	}
	return count
}

// ForDecoding sizes a pool for decode-resize-encode work, which is
// CPU-bound: one worker per CPU.
func ForDecoding(limit int) int {
	return scale(1.0, limit)
}

// ForProbing sizes a pool for header reads and metadata probes, which
// spend most of their time in file I/O: two workers per CPU.
func ForProbing(limit int) int {
	return scale(2.0, limit)
}

// ForPostProcessing sizes a pool for the mixed decode-and-persist work
// that runs after a scan batch lands.
func ForPostProcessing(limit int) int {
	return scale(1.5, limit)
}
