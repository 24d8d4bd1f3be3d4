package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats describes the running server as seen by the OS.
type ProcessStats struct {
	Pid        int32   `json:"pid"`
	Status     string  `json:"status"`
	CpuPercent float64 `json:"cpu_percent"`
	RssBytes   uint64  `json:"rss_bytes"`
}

// HealthStats aggregates sweep counters and process metrics for GET /health
type HealthStats struct {
	Sweeps           uint64        `json:"sweeps"`
	Evictions        uint64        `json:"evictions"`
	EvictionFailures uint64        `json:"eviction_failures"`
	LastSweepAt      *time.Time    `json:"last_sweep_at,omitempty"`
	LastSweepMs      int64         `json:"last_sweep_ms"`
	Goroutines       int           `json:"goroutines"`
	AllocMemMb       uint64        `json:"alloc_mem_mb"`
	NumGC            uint32        `json:"num_gc"`
	Process          *ProcessStats `json:"process,omitempty"`
}

// SweepMonitor counts what the inactivity sweeper did.
type SweepMonitor struct {
	log *slog.Logger

	Sweeps           uint64
	Evictions        uint64
	EvictionFailures uint64

	mu          sync.RWMutex
	lastSweepAt time.Time
	lastSweep   time.Duration
}

func NewSweepMonitor(log *slog.Logger) *SweepMonitor {
	return &SweepMonitor{log: log}
}

func (m *SweepMonitor) IncrEvictions() {
	atomic.AddUint64(&m.Evictions, 1)
}

func (m *SweepMonitor) IncrEvictionFailures() {
	atomic.AddUint64(&m.EvictionFailures, 1)
}

// RecordSweep is called once per completed sweep.
func (m *SweepMonitor) RecordSweep(at time.Time, took time.Duration) {
	atomic.AddUint64(&m.Sweeps, 1)
	m.mu.Lock()
	m.lastSweepAt = at
	m.lastSweep = took
	m.mu.Unlock()
}

// Snapshot reads the counters and, when available, the process metrics.
// A failure to read process metrics only drops that section.
func (m *SweepMonitor) Snapshot() HealthStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := HealthStats{
		Sweeps:           atomic.LoadUint64(&m.Sweeps),
		Evictions:        atomic.LoadUint64(&m.Evictions),
		EvictionFailures: atomic.LoadUint64(&m.EvictionFailures),
		Goroutines:       runtime.NumGoroutine(),
		AllocMemMb:       mem.Alloc / 1024 / 1024,
		NumGC:            mem.NumGC,
	}
	m.mu.RLock()
	if !m.lastSweepAt.IsZero() {
		at := m.lastSweepAt
		stats.LastSweepAt = &at
		stats.LastSweepMs = m.lastSweep.Milliseconds()
	}
	m.mu.RUnlock()

	processStats, err := selfStats()
	if err != nil {
		m.log.Debug("Unable to read process stats", "error", err)
		return stats
	}
	stats.Process = &processStats
	return stats
}

// selfStats retrieves memory, CPU and OS status for the current process.
func selfStats() (ProcessStats, error) {
	pid := int32(os.Getpid())
	p, err := process.NewProcess(pid)
	if err != nil {
		return ProcessStats{}, err
	}
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return ProcessStats{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return ProcessStats{}, err
	}
	status, err := p.Status()
	if err != nil {
		return ProcessStats{}, err
	}
	return ProcessStats{Pid: pid, Status: status, CpuPercent: cpuPercent, RssBytes: memInfo.RSS}, nil
}
