// Package hostprobe samples host-level CPU, memory, disk, network, and
// load metrics. Two modes are available: direct mode reads straight
// from gopsutil, and host-overlay mode reads the host's /proc and /sys
// through HOST_PROC/HOST_SYS/HOST_ROOT bind mounts when processguard
// itself is running inside a container. Overlay mode falls back to
// direct mode per-field on any read failure.
package hostprobe

import (
	"log/slog"
	"os"
	"runtime"
	"sort"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	gnet "github.com/shirou/gopsutil/v4/net"
	gprocess "github.com/shirou/gopsutil/v4/process"

	"github.com/processguard/processguard/internal/model"
)

// Prober samples host metrics, switching between direct and host-overlay
// mode based on its environment at construction time.
type Prober struct {
	logger *slog.Logger

	overlay  bool
	hostProc string
	hostSys  string
	hostRoot string
}

// New creates a Prober. Overlay mode activates when /.dockerenv exists
// and the configured (or default) host /proc is readable; otherwise
// samples are taken directly from the local /proc via gopsutil.
func New(logger *slog.Logger) *Prober {
	logger = logger.With("component", "host_probe")

	p := &Prober{
		logger:   logger,
		hostProc: envOr("HOST_PROC", "/proc"),
		hostSys:  envOr("HOST_SYS", "/sys"),
		hostRoot: envOr("HOST_ROOT", "/"),
	}

	inContainer := fileExists("/.dockerenv")
	hasHostAccess := fileExists(p.hostProc)
	p.overlay = inContainer && hasHostAccess

	switch {
	case inContainer && hasHostAccess:
		logger.Info("running in container with host system access, using overlay probe")
	case inContainer:
		logger.Warn("running in container without host access, falling back to direct probe")
	default:
		logger.Info("running on host, using direct probe")
	}

	return p
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Sample collects one host-level metrics snapshot.
func (p *Prober) Sample() model.SystemMetrics {
	if p.overlay {
		return p.overlaySample()
	}
	return p.directSample()
}

// Info collects mostly-static host identity.
func (p *Prober) Info() model.SystemInfo {
	if p.overlay {
		return p.overlayInfo()
	}
	return p.directInfo()
}

func (p *Prober) directSample() model.SystemMetrics {
	cpuPercent := 0.0
	if pcts, err := cpu.Percent(time.Second, false); err == nil && len(pcts) > 0 {
		cpuPercent = pcts[0]
	} else if err != nil {
		p.logger.Warn("cpu percent unavailable", "error", err)
	}

	return model.SystemMetrics{
		Timestamp:         time.Now(),
		CPUPercent:        cpuPercent,
		MemoryPercent:     p.directMemoryPercent(),
		MemoryTotal:       p.directMemoryTotal(),
		MemoryAvailable:   p.directMemoryAvailable(),
		DiskUsage:         p.directDiskUsage(),
		NetworkIO:         p.directNetworkIO(),
		LoadAverage:       p.directLoadAverage(),
		UptimeSeconds:     p.directUptime(),
		ActiveConnections: p.directConnectionCount(),
	}
}

func (p *Prober) directMemoryPercent() float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		p.logger.Warn("memory stats unavailable", "error", err)
		return 0
	}
	return vm.UsedPercent
}

func (p *Prober) directMemoryTotal() uint64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return vm.Total
}

func (p *Prober) directMemoryAvailable() uint64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return vm.Available
}

func (p *Prober) directDiskUsage() map[string]model.DiskUsage {
	usage := make(map[string]model.DiskUsage)

	partitions, err := disk.Partitions(false)
	if err != nil {
		p.logger.Warn("disk partitions unavailable", "error", err)
		return usage
	}

	for _, part := range partitions {
		u, err := disk.Usage(part.Mountpoint)
		if err != nil {
			continue
		}
		usage[part.Mountpoint] = model.DiskUsage{
			Total:   u.Total,
			Used:    u.Used,
			Free:    u.Free,
			Percent: u.UsedPercent,
		}
	}
	return usage
}

func (p *Prober) directNetworkIO() map[string]uint64 {
	counters, err := gnet.IOCounters(false)
	if err != nil || len(counters) == 0 {
		p.logger.Warn("network io counters unavailable", "error", err)
		return map[string]uint64{}
	}
	c := counters[0]
	return map[string]uint64{
		"bytes_sent":   c.BytesSent,
		"bytes_recv":   c.BytesRecv,
		"packets_sent": c.PacketsSent,
		"packets_recv": c.PacketsRecv,
	}
}

func (p *Prober) directLoadAverage() [3]float64 {
	avg, err := load.Avg()
	if err != nil {
		p.logger.Warn("load average unavailable", "error", err)
		return [3]float64{}
	}
	return [3]float64{avg.Load1, avg.Load5, avg.Load15}
}

func (p *Prober) directUptime() float64 {
	uptime, err := host.Uptime()
	if err != nil {
		return 0
	}
	return float64(uptime)
}

func (p *Prober) directConnectionCount() int {
	conns, err := gnet.Connections("inet")
	if err != nil {
		return 0
	}
	return len(conns)
}

func (p *Prober) directInfo() model.SystemInfo {
	hostname, _ := os.Hostname()

	info, err := host.Info()
	platform := ""
	var bootTime time.Time
	if err == nil {
		platform = info.Platform
		bootTime = time.Unix(int64(info.BootTime), 0)
	}

	counts, err := cpu.Counts(true)
	if err != nil {
		counts = 0
	}

	return model.SystemInfo{
		Hostname:     hostname,
		Platform:     platform,
		Architecture: runtime.GOARCH,
		CPUCount:     counts,
		TotalMemory:  p.directMemoryTotal(),
		BootTime:     bootTime,
		OpenPorts:    p.openPorts(),
	}
}

// openPorts lists listening sockets discovered via gopsutil; this is
// the same regardless of overlay/direct mode since it reads the
// process's own net namespace.
func (p *Prober) openPorts() []model.PortInfo {
	conns, err := gnet.Connections("inet")
	if err != nil {
		p.logger.Warn("open ports unavailable", "error", err)
		return nil
	}

	var ports []model.PortInfo
	for _, c := range conns {
		if c.Status != "LISTEN" || c.Laddr.Port == 0 {
			continue
		}

		name := "unknown"
		if c.Pid != 0 {
			if proc, err := gprocess.NewProcess(c.Pid); err == nil {
				if n, err := proc.Name(); err == nil {
					name = n
				}
			}
		}

		protocol := "TCP"
		if c.Type == syscall.SOCK_DGRAM {
			protocol = "UDP"
		}

		ports = append(ports, model.PortInfo{
			Port:        c.Laddr.Port,
			Protocol:    protocol,
			ProcessName: name,
			PID:         c.Pid,
			Status:      c.Status,
		})
	}

	sort.Slice(ports, func(i, j int) bool { return ports[i].Port < ports[j].Port })
	return ports
}

