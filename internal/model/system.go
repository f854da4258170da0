package model

import "time"

// DiskUsage is the usage snapshot for a single mountpoint.
type DiskUsage struct {
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Free    uint64  `json:"free"`
	Percent float64 `json:"percent"`
}

// PortInfo describes a listening socket discovered on the host.
type PortInfo struct {
	Port        uint32 `json:"port"`
	Protocol    string `json:"protocol"`
	ProcessName string `json:"process_name"`
	PID         int32  `json:"pid"`
	Status      string `json:"status"`
}

// SystemInfo is mostly-static host identity, sampled once at startup and
// refreshed opportunistically; supplements SystemMetrics for the host
// overlay's "system_info" control-surface operation.
type SystemInfo struct {
	Hostname     string    `json:"hostname"`
	Platform     string    `json:"platform"`
	Architecture string    `json:"architecture"`
	CPUCount     int       `json:"cpu_count"`
	TotalMemory  uint64    `json:"total_memory"`
	BootTime     time.Time `json:"boot_time"`
	OpenPorts    []PortInfo `json:"open_ports"`
}

// SystemMetrics is one host-level sample.
type SystemMetrics struct {
	Timestamp          time.Time            `json:"timestamp"`
	CPUPercent         float64              `json:"cpu_percent"`
	MemoryPercent      float64              `json:"memory_percent"`
	MemoryTotal        uint64               `json:"memory_total"`
	MemoryAvailable    uint64               `json:"memory_available"`
	DiskUsage          map[string]DiskUsage `json:"disk_usage"`
	NetworkIO          map[string]uint64    `json:"network_io"`
	LoadAverage        [3]float64           `json:"load_average"`
	UptimeSeconds      float64              `json:"uptime_seconds"`
	ActiveConnections  int                  `json:"active_connections"`
}
