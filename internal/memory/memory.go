package memory

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"scan-gallery/internal/logging"
	"scan-gallery/internal/metrics"
)

// Config tunes the pressure monitor.
type Config struct {
	// BudgetBytes overrides the heap budget; zero falls back to the
	// runtime soft memory limit when one is set.
	BudgetBytes int64
	// SoftRatio is the fraction of the budget above which optional
	// work should be deferred.
	SoftRatio float64
	// HardRatio is the fraction above which post-processing pauses
	// until usage drops back below SoftRatio.
	HardRatio float64
	// Interval is the sampling period.
	Interval time.Duration
}

// DefaultConfig returns the sampling parameters used in production.
func DefaultConfig() Config {
	return Config{
		SoftRatio: 0.7,
		HardRatio: 0.85,
		Interval:  5 * time.Second,
	}
}

// Monitor samples heap usage against a budget and pauses scan
// post-processing while usage stays above the hard ratio. Workers gate
// themselves through Wait.
type Monitor struct {
	cfg    Config
	budget int64
	quit   chan struct{}

	mu     sync.RWMutex
	alloc  uint64
	paused bool
	resume chan struct{}
}

// NewMonitor builds a monitor against cfg.BudgetBytes, falling back to
// the runtime soft memory limit. Without either the monitor is inert.
func NewMonitor(cfg Config) *Monitor {
	budget := cfg.BudgetBytes
	if budget == 0 {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < 1<<62 {
			budget = limit
			logging.Info("memory: monitoring against %s heap budget", humanBytes(budget))
		}
	}
	if budget == 0 {
		logging.Warn("memory: no heap budget configured, pressure pauses disabled")
	}
	return &Monitor{
		cfg:    cfg,
		budget: budget,
		quit:   make(chan struct{}),
		resume: make(chan struct{}),
	}
}

// Start launches the sampling loop. It is a no-op without a budget.
func (m *Monitor) Start() {
	if m.budget == 0 {
		return
	}
	go m.loop()
}

// Stop ends sampling and releases any goroutine blocked in Wait.
func (m *Monitor) Stop() {
	close(m.quit)
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sample()
		case <-m.quit:
			return
		}
	}
}

func (m *Monitor) sample() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.alloc = stats.Alloc
	ratio := float64(stats.Alloc) / float64(m.budget)
	metrics.MemoryUsageRatio.Set(ratio)

	switch {
	case !m.paused && ratio >= m.cfg.HardRatio:
		logging.Warn("memory: %.0f%% of heap budget in use, pausing post-processing", ratio*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryGCPauses.Inc()
		go runtime.GC()
	case m.paused && ratio < m.cfg.SoftRatio:
		logging.Info("memory: usage back at %.0f%% of heap budget, resuming", ratio*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resume)
		m.resume = make(chan struct{})
	}
}

// Wait blocks while the monitor is paused. It returns false only when
// the monitor is stopped before pressure clears.
func (m *Monitor) Wait() bool {
	m.mu.RLock()
	if !m.paused {
		m.mu.RUnlock()
		return true
	}
	resume := m.resume
	m.mu.RUnlock()

	select {
	case <-resume:
		return true
	case <-m.quit:
		return false
	}
}

// Throttled reports whether usage sits above the soft ratio, a hint to
// defer optional work such as eager preview generation.
func (m *Monitor) Throttled() bool {
	if m.budget == 0 {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.alloc) >= float64(m.budget)*m.cfg.SoftRatio
}

// Usage returns heap usage as a fraction of the budget, zero when no
// budget is configured.
func (m *Monitor) Usage() float64 {
	if m.budget == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.alloc) / float64(m.budget)
}
