// Package hostinfo describes the machine an encode run executes on.
package hostinfo

import (
	"context"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/smazurov/enctests/internal/logging"
	"github.com/smazurov/enctests/internal/otio"
)

// Collect gathers host details. Fields that cannot be read are left empty.
func Collect(ctx context.Context) *otio.HostInfo {
	logger := logging.GetLogger("hostinfo")
	info := &otio.HostInfo{
		OS:       runtime.GOOS,
		CPUCores: runtime.NumCPU(),
	}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = h.Hostname
		if h.OS != "" {
			info.OS = h.OS
		}
		info.Platform = h.Platform
		if h.PlatformVersion != "" {
			info.Platform += " " + h.PlatformVersion
		}
	} else {
		logger.Debug("Failed to read host info", "error", err)
	}

	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	} else if err != nil {
		logger.Debug("Failed to read CPU info", "error", err)
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		info.CPUCores = n
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal = humanize.IBytes(vm.Total)
	} else {
		logger.Debug("Failed to read memory info", "error", err)
	}

	return info
}
