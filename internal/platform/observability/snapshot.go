package observability

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemSnapshot is a point-in-time view of host resources, served by the
// system status endpoint.
type SystemSnapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsedMB  uint64    `json:"memory_used_mb"`
	MemoryTotalMB uint64    `json:"memory_total_mb"`
	DiskPercent   float64   `json:"disk_percent"`
	DiskFreeGB    uint64    `json:"disk_free_gb"`
	Goroutines    int       `json:"goroutines"`
	GoVersion     string    `json:"go_version"`
}

// Snapshot gathers host metrics. Individual probe failures leave their
// fields zeroed rather than failing the snapshot.
func Snapshot(ctx context.Context) SystemSnapshot {
	s := SystemSnapshot{
		Timestamp:  time.Now(),
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		s.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.MemoryPercent = vm.UsedPercent
		s.MemoryUsedMB = vm.Used / (1 << 20)
		s.MemoryTotalMB = vm.Total / (1 << 20)
	}
	if usage, err := disk.UsageWithContext(ctx, "/"); err == nil {
		s.DiskPercent = usage.UsedPercent
		s.DiskFreeGB = usage.Free / (1 << 30)
	}
	return s
}
