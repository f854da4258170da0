package hostprobe

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/processguard/processguard/internal/model"
)

// overlaySample reads host metrics from the bind-mounted host /proc.
// Each field falls back to the direct gopsutil reading independently on
// failure, so a container missing one /proc file (e.g. a restricted
// /proc/loadavg) still reports everything else from the host. Network IO
// and connection counts always come from the direct reading.
func (p *Prober) overlaySample() model.SystemMetrics {
	memTotal, memAvail, memPercent, err := p.overlayMemory()
	if err != nil {
		p.logger.Warn("host meminfo unavailable, falling back to direct", "error", err)
		memPercent = p.directMemoryPercent()
		memTotal = p.directMemoryTotal()
		memAvail = p.directMemoryAvailable()
	}

	cpuPercent, err := p.overlayCPUPercent()
	if err != nil {
		p.logger.Warn("host /proc/stat unavailable, falling back to direct", "error", err)
		cpuPercent = p.directSample().CPUPercent
	}

	diskUsage, err := p.overlayDiskUsage()
	if err != nil || len(diskUsage) == 0 {
		diskUsage = p.directDiskUsage()
	}

	loadAvg, err := p.overlayLoadAverage()
	if err != nil {
		loadAvg = p.directLoadAverage()
	}

	uptime, err := p.overlayUptime()
	if err != nil {
		uptime = p.directUptime()
	}

	return model.SystemMetrics{
		Timestamp:         time.Now(),
		CPUPercent:        cpuPercent,
		MemoryPercent:     memPercent,
		MemoryTotal:       memTotal,
		MemoryAvailable:   memAvail,
		DiskUsage:         diskUsage,
		NetworkIO:         p.directNetworkIO(), // network namespace is shared, no host-specific path needed
		LoadAverage:       loadAvg,
		UptimeSeconds:     uptime,
		ActiveConnections: p.directConnectionCount(),
	}
}

func (p *Prober) overlayInfo() model.SystemInfo {
	hostname, _ := os.Hostname()

	platform := p.overlayPlatform()
	cpuCount := p.overlayCPUCount()
	memTotal, _, _, err := p.overlayMemory()
	if err != nil {
		memTotal = p.directMemoryTotal()
	}
	bootTime, err := p.overlayBootTime()
	if err != nil {
		bootTime = time.Unix(int64(p.directUptime()), 0) // best-effort, rarely hit
	}

	return model.SystemInfo{
		Hostname:     hostname,
		Platform:     platform,
		Architecture: p.directInfo().Architecture,
		CPUCount:     cpuCount,
		TotalMemory:  memTotal,
		BootTime:     bootTime,
		OpenPorts:    p.openPorts(),
	}
}

func (p *Prober) overlayPlatform() string {
	data, err := os.ReadFile(filepath.Join(p.hostRoot, "etc/os-release"))
	if err != nil {
		return p.directInfo().Platform
	}
	for _, line := range strings.Split(string(data), "\n") {
		if name, ok := strings.CutPrefix(line, "PRETTY_NAME="); ok {
			return strings.Trim(name, `"`)
		}
	}
	return p.directInfo().Platform
}

func (p *Prober) overlayCPUCount() int {
	f, err := os.Open(filepath.Join(p.hostProc, "cpuinfo"))
	if err != nil {
		return p.directInfo().CPUCount
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "processor") {
			count++
		}
	}
	if count == 0 {
		return p.directInfo().CPUCount
	}
	return count
}

// overlayMemory reads /proc/meminfo: total from MemTotal, available
// from MemAvailable (falling back to MemFree on older kernels), percent
// derived as (total-available)/total like the host's own accounting.
func (p *Prober) overlayMemory() (total, available uint64, percent float64, err error) {
	f, err := os.Open(filepath.Join(p.hostProc, "meminfo"))
	if err != nil {
		return 0, 0, 0, err
	}
	defer f.Close()

	values := make(map[string]uint64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		key := strings.TrimSuffix(fields[0], ":")
		n, convErr := strconv.ParseUint(fields[1], 10, 64)
		if convErr != nil {
			continue
		}
		values[key] = n * 1024 // kB -> bytes
	}

	total = values["MemTotal"]
	available, ok := values["MemAvailable"]
	if !ok {
		available = values["MemFree"]
	}
	if total > 0 {
		percent = float64(total-available) / float64(total) * 100
	}
	return total, available, percent, nil
}

// overlayCPUPercent derives the busy share of all CPU ticks counted
// since boot from a single /proc/stat read. It is not an interval delta
// between two reads, so it reflects the average load since boot rather
// than current load; it avoids blocking the tick for a second read.
func (p *Prober) overlayCPUPercent() (float64, error) {
	f, err := os.Open(filepath.Join(p.hostProc, "stat"))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0, scanner.Err()
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, os.ErrInvalid
	}

	var total, idle uint64
	for i, field := range fields[1:] {
		n, convErr := strconv.ParseUint(field, 10, 64)
		if convErr != nil {
			continue
		}
		total += n
		if i == 3 { // idle is the 4th value
			idle = n
		}
	}
	if total == 0 {
		return 0, nil
	}
	return float64(total-idle) / float64(total) * 100, nil
}

func (p *Prober) overlayDiskUsage() (map[string]model.DiskUsage, error) {
	f, err := os.Open(filepath.Join(p.hostProc, "mounts"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	usage := make(map[string]model.DiskUsage)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		mountpoint := fields[1]
		if !strings.HasPrefix(mountpoint, "/") || strings.HasPrefix(mountpoint, "/proc") {
			continue
		}

		hostPath := filepath.Join(p.hostRoot, mountpoint)
		if mountpoint == "/" {
			hostPath = p.hostRoot
		}

		var stat statfsResult
		if err := statfs(hostPath, &stat); err != nil {
			continue
		}
		usage[mountpoint] = stat.toDiskUsage()
	}
	return usage, nil
}

func (p *Prober) overlayLoadAverage() ([3]float64, error) {
	data, err := os.ReadFile(filepath.Join(p.hostProc, "loadavg"))
	if err != nil {
		return [3]float64{}, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return [3]float64{}, os.ErrInvalid
	}

	var out [3]float64
	for i := 0; i < 3; i++ {
		v, convErr := strconv.ParseFloat(fields[i], 64)
		if convErr != nil {
			return [3]float64{}, convErr
		}
		out[i] = v
	}
	return out, nil
}

func (p *Prober) overlayUptime() (float64, error) {
	data, err := os.ReadFile(filepath.Join(p.hostProc, "uptime"))
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 1 {
		return 0, os.ErrInvalid
	}
	return strconv.ParseFloat(fields[0], 64)
}

func (p *Prober) overlayBootTime() (time.Time, error) {
	f, err := os.Open(filepath.Join(p.hostProc, "stat"))
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 2 && fields[0] == "btime" {
			sec, convErr := strconv.ParseInt(fields[1], 10, 64)
			if convErr != nil {
				return time.Time{}, convErr
			}
			return time.Unix(sec, 0), nil
		}
	}
	return time.Time{}, os.ErrInvalid
}
