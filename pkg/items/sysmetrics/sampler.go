// Package sysmetrics provides the cpu, mem, disk and nic bar items. Metrics
// are read with gopsutil, which works on Linux and the BSDs without
// parsing /proc by hand.
package sysmetrics

import (
	"context"
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
)

// Default refresh intervals.
const (
	DefaultFastInterval = 2 * time.Second
	DefaultSlowInterval = 60 * time.Second
)

// MemoryMetrics holds physical memory statistics.
type MemoryMetrics struct {
	Total       uint64
	Used        uint64
	Available   uint64
	UsedPercent float64
}

// DiskMetrics holds usage data for a single mount point.
type DiskMetrics struct {
	Path        string
	Total       uint64
	Used        uint64
	Free        uint64
	UsedPercent float64
}

// Sampler reads the metrics the items display. The gopsutil implementation
// is used in production; tests inject fixed values.
type Sampler interface {
	CPUPercent(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (MemoryMetrics, error)
	Disk(ctx context.Context, path string) (DiskMetrics, error)
	Interfaces(ctx context.Context) ([]Interface, error)
}

// NewSampler returns the gopsutil backed Sampler.
func NewSampler() Sampler {
	return psSampler{}
}

type psSampler struct{}

// CPUPercent returns total usage since the previous call.
func (psSampler) CPUPercent(ctx context.Context) (float64, error) {
	total, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(total) == 0 {
		return 0, nil
	}
	return total[0], nil
}

func (psSampler) Memory(ctx context.Context) (MemoryMetrics, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryMetrics{}, err
	}
	return MemoryMetrics{
		Total:       vm.Total,
		Used:        vm.Used,
		Available:   vm.Available,
		UsedPercent: vm.UsedPercent,
	}, nil
}

func (psSampler) Disk(ctx context.Context, path string) (DiskMetrics, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return DiskMetrics{}, err
	}
	return DiskMetrics{
		Path:        usage.Path,
		Total:       usage.Total,
		Used:        usage.Used,
		Free:        usage.Free,
		UsedPercent: usage.UsedPercent,
	}, nil
}

// Interfaces lists one entry per address of every interface that is up,
// excluding loopback and link-local addresses.
func (psSampler) Interfaces(ctx context.Context) ([]Interface, error) {
	stats, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	var out []Interface
	for _, st := range stats {
		if !slices.Contains(st.Flags, "up") || slices.Contains(st.Flags, "loopback") {
			continue
		}
		for _, a := range st.Addrs {
			addr, ok := smParseAddr(a.Addr)
			if !ok || addr.IsLoopback() || addr.IsLinkLocalUnicast() {
				continue
			}
			out = append(out, NewInterface(st.Name, addr))
		}
	}
	return out, nil
}

// smParseAddr accepts "10.0.0.2/24" as well as a bare address.
func smParseAddr(s string) (netip.Addr, bool) {
	if p, err := netip.ParsePrefix(s); err == nil {
		return p.Addr(), true
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	return addr, err == nil
}
