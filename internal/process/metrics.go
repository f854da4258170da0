package process

import (
	"fmt"
	"syscall"
	"time"

	gnet "github.com/shirou/gopsutil/v4/net"

	"github.com/processguard/processguard/internal/metrics"
	"github.com/processguard/processguard/internal/model"
)

// SampleMetrics collects one ProcessMetrics sample for name: CPU
// percent, resident memory and memory percent, open file descriptors,
// socket table, thread count, and uptime derived from started_at.
// A pid that can no longer be queried flips the process to FAILED and
// the returned sample reflects that.
func (s *Supervisor) SampleMetrics(name string) (model.ProcessMetrics, error) {
	proc, ok := s.registry.Get(name)
	if !ok {
		return model.ProcessMetrics{}, fmt.Errorf("process %q not registered", name)
	}
	if proc.Status != model.StateRunning || proc.PID == nil {
		sample := model.ProcessMetrics{Timestamp: time.Now(), Status: proc.Status}
		s.registry.appendMetrics(name, sample)
		return sample, nil
	}

	pid := *proc.PID
	sample, err := metrics.CollectProcessMetrics(pid)
	if err != nil {
		s.logger.Warn("process metrics unavailable, marking failed", "process", name, "pid", pid, "error", err)
		s.registry.setStatus(name, model.StateFailed, nil)
		failed := model.ProcessMetrics{Timestamp: time.Now(), PID: &pid, Status: model.StateFailed}
		s.registry.appendMetrics(name, failed)
		return failed, nil
	}

	var uptime float64
	if proc.StartedAt != nil {
		uptime = time.Since(*proc.StartedAt).Seconds()
	}

	result := model.ProcessMetrics{
		Timestamp:     sample.Timestamp,
		PID:           &pid,
		CPUPercent:    sample.CPUPercent,
		MemoryPercent: sample.MemoryPercent,
		MemoryMB:      float64(sample.MemoryRSSBytes) / (1024 * 1024),
		OpenFiles:     int(sample.FileDescriptors),
		Connections:   collectConnections(pid),
		Threads:       sample.Threads,
		Status:        model.StateRunning,
		UptimeSeconds: uptime,
	}

	s.registry.appendMetrics(name, result)
	if s.resource != nil {
		s.resource.AddSample(name, *sample)
		metrics.UpdatePrometheusMetrics(name, sample)
	}
	return result, nil
}

// collectConnections reads the socket table for pid. Failures are
// swallowed: connections are a reporting nicety, not load-bearing for
// the state machine.
func collectConnections(pid int) []model.Connection {
	stats, err := gnet.ConnectionsPid("inet", int32(pid))
	if err != nil {
		return nil
	}

	conns := make([]model.Connection, 0, len(stats))
	for _, c := range stats {
		transport := "unknown"
		switch c.Type {
		case syscall.SOCK_STREAM:
			transport = "tcp"
		case syscall.SOCK_DGRAM:
			transport = "udp"
		}
		conns = append(conns, model.Connection{
			Local:     fmt.Sprintf("%s:%d", c.Laddr.IP, c.Laddr.Port),
			Remote:    fmt.Sprintf("%s:%d", c.Raddr.IP, c.Raddr.Port),
			Status:    c.Status,
			Transport: transport,
		})
	}
	return conns
}
