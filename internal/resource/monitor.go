// Package resource periodically samples host CPU and memory usage for the
// registry's health and metrics endpoints, grounded on the teacher's
// collectMetrics/monitorMemory goroutines in server.go (same sampling
// cadence and gopsutil process/vmem lookups, generalized into a standalone
// reusable sampler instead of being inlined into one monolithic Server).
package resource

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Sample is one point-in-time reading of host resource usage.
type Sample struct {
	MemoryMB   float64
	CPUPercent float64
}

// Monitor owns a background ticker that refreshes the current Sample.
type Monitor struct {
	logger zerolog.Logger
	proc   *process.Process

	mu   sync.RWMutex
	last Sample

	started atomic.Bool
}

// New constructs a Monitor bound to the current process. Failure to locate
// the process is logged and tolerated — Snapshot falls back to system-wide
// virtual memory stats, mirroring the teacher's proc-lookup fallback.
func New(logger zerolog.Logger) *Monitor {
	m := &Monitor{logger: logger.With().Str("component", "resource_monitor").Logger()}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to resolve process handle, falling back to system memory stats")
	} else {
		m.proc = proc
	}
	return m
}

// Start launches the sampling loop at the given period until ctx is done.
// It is safe to call Start at most once per Monitor.
func (m *Monitor) Start(ctx context.Context, period time.Duration, wg *sync.WaitGroup) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		m.sample()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
}

func (m *Monitor) sample() {
	var memMB float64
	if m.proc != nil {
		if info, err := m.proc.MemoryInfo(); err == nil {
			memMB = float64(info.RSS) / 1024 / 1024
		}
	}
	if memMB == 0 {
		if vm, err := mem.VirtualMemory(); err == nil {
			memMB = float64(vm.Used) / 1024 / 1024
		}
	}
	var cpuPercent float64
	if m.proc != nil {
		if pct, err := m.proc.CPUPercent(); err == nil {
			cpuPercent = pct
		}
	}
	m.mu.Lock()
	m.last = Sample{MemoryMB: memMB, CPUPercent: cpuPercent}
	m.mu.Unlock()
}

// Snapshot returns the most recently collected Sample.
func (m *Monitor) Snapshot() Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}
