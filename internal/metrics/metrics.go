// Package metrics logs resource usage snapshots while a generation run
// is in flight. Large extracts keep the process busy for minutes; the
// periodic log line shows whether it is CPU or memory bound.
package metrics

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Snapshot is one resource usage sample.
type Snapshot struct {
	CPUPercent        float64 // system-wide, 0-100
	ProcessCPUPercent float64 // this process, may exceed 100 on multi-core
	ProcessRSSGB      float64
	MemoryUsedGB      float64
	MemoryTotalGB     float64
	MemoryPercent     float64
	Timestamp         time.Time
}

// Collector samples resource usage on a fixed interval and logs each
// sample.
type Collector struct {
	interval time.Duration
	log      *zap.Logger
	proc     *process.Process

	mu   sync.RWMutex
	last *Snapshot
}

// NewCollector creates a collector. Intervals below one second fall
// back to 30s.
func NewCollector(interval time.Duration, log *zap.Logger) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &Collector{interval: interval, log: log, proc: proc}
}

// Start samples until the context is cancelled.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()
	for {
		select {
		case <-ctx.Done():
			c.log.Debug("metrics collection stopped")
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

// Last returns the most recent sample, or nil before the first one.
func (c *Collector) Last() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

func (c *Collector) collect() {
	snap := &Snapshot{Timestamp: time.Now()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		snap.CPUPercent = pct[0]
	}
	if c.proc != nil {
		if pct, err := c.proc.Percent(0); err == nil {
			snap.ProcessCPUPercent = pct
		}
		if info, err := c.proc.MemoryInfo(); err == nil {
			snap.ProcessRSSGB = float64(info.RSS) / (1 << 30)
		}
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		snap.MemoryPercent = vmem.UsedPercent
		snap.MemoryUsedGB = float64(vmem.Used) / (1 << 30)
		snap.MemoryTotalGB = float64(vmem.Total) / (1 << 30)
	}

	c.mu.Lock()
	c.last = snap
	c.mu.Unlock()

	c.log.Info("resource usage",
		zap.Float64("sys_cpu", snap.CPUPercent),
		zap.Float64("proc_cpu", snap.ProcessCPUPercent),
		zap.Float64("proc_rss_gb", snap.ProcessRSSGB),
		zap.Float64("mem_pct", snap.MemoryPercent))
}
