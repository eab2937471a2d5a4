// Package system snapshots the client machine a stress run is driven from.
package system

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

type SystemInfo struct {
	Hostname        string
	OS              string
	Platform        string
	PlatformVersion string
	KernelArch      string
	Uptime          time.Duration
	CPUModel        string
	CPUCores        int
	CPUUsage        float64 // Percent
	Load1           float64
	RAMTotal        uint64
	RAMFree         uint64
	RAMUsed         uint64
	RAMUsage        float64 // Percent
}

// GetSystemInfo collects host, CPU and memory details. CPU usage is measured
// over sample; a zero sample compares against the previous call.
func GetSystemInfo(ctx context.Context, sample time.Duration) (*SystemInfo, error) {
	h, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get host info: %w", err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get memory info: %w", err)
	}

	cpuModel := "Unknown"
	if cpuInfo, err := cpu.InfoWithContext(ctx); err == nil && len(cpuInfo) > 0 {
		cpuModel = cpuInfo[0].ModelName
	}

	cpuUsage := 0.0
	if cpuPercents, err := cpu.PercentWithContext(ctx, sample, false); err == nil && len(cpuPercents) > 0 {
		cpuUsage = cpuPercents[0]
	}

	// Load average is not available on windows.
	var load1 float64
	if avg, err := load.AvgWithContext(ctx); err == nil {
		load1 = avg.Load1
	}

	return &SystemInfo{
		Hostname:        h.Hostname,
		OS:              h.OS,
		Platform:        h.Platform,
		PlatformVersion: h.PlatformVersion,
		KernelArch:      h.KernelArch,
		Uptime:          time.Duration(h.Uptime) * time.Second,
		CPUModel:        cpuModel,
		CPUCores:        runtime.NumCPU(),
		CPUUsage:        cpuUsage,
		Load1:           load1,
		RAMTotal:        vm.Total,
		RAMFree:         vm.Available,
		RAMUsed:         vm.Used,
		RAMUsage:        vm.UsedPercent,
	}, nil
}

// Summary is a one-line description for logs and progress messages.
func (s *SystemInfo) Summary() string {
	return fmt.Sprintf("%s %s/%s | CPU: %.1f%% of %d cores | RAM: %.1f%% used", s.Hostname, s.Platform, s.KernelArch, s.CPUUsage, s.CPUCores, s.RAMUsage)
}
