package collector

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// GopsutilSource reads host figures via gopsutil. CPU percent is computed
// against the previous call, so the first reading after start may be zero.
type GopsutilSource struct {
	diskPath string
}

func NewGopsutilSource() *GopsutilSource {
	return &GopsutilSource{diskPath: "/"}
}

func (s *GopsutilSource) HostMetrics(ctx context.Context) (*HostMetrics, error) {
	metrics := &HostMetrics{}

	cpuPercent, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("%w: cpu: %v", ErrCollectionFailed, err)
	}
	if len(cpuPercent) > 0 {
		metrics.CPUUsage = cpuPercent[0]
	}

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: memory: %v", ErrCollectionFailed, err)
	}
	metrics.MemoryUsage = memInfo.UsedPercent

	diskInfo, err := disk.UsageWithContext(ctx, s.diskPath)
	if err != nil {
		return nil, fmt.Errorf("%w: disk: %v", ErrCollectionFailed, err)
	}
	metrics.DiskUsage = diskInfo.UsedPercent

	netIO, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("%w: network: %v", ErrCollectionFailed, err)
	}
	metrics.NetworkIO = map[string]int{}
	if len(netIO) > 0 {
		metrics.NetworkIO["bytes_sent"] = int(netIO[0].BytesSent)
		metrics.NetworkIO["bytes_recv"] = int(netIO[0].BytesRecv)
		metrics.NetworkIO["packets_sent"] = int(netIO[0].PacketsSent)
		metrics.NetworkIO["packets_recv"] = int(netIO[0].PacketsRecv)
	}

	return metrics, nil
}
