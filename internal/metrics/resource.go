package metrics

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// CollectProcessMetrics collects resource metrics for a single process.
func CollectProcessMetrics(pid int) (*ResourceSample, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, err
	}

	sample := &ResourceSample{
		Timestamp:       time.Now(),
		FileDescriptors: -1, // Default for non-Linux
	}

	if cpu, err := proc.CPUPercent(); err == nil {
		sample.CPUPercent = cpu
	}

	if memInfo, err := proc.MemoryInfo(); err == nil {
		sample.MemoryRSSBytes = memInfo.RSS
		sample.MemoryVMSBytes = memInfo.VMS
	}

	if memPct, err := proc.MemoryPercent(); err == nil {
		sample.MemoryPercent = memPct
	}

	if threads, err := proc.NumThreads(); err == nil {
		sample.Threads = threads
	}

	if fds, err := proc.NumFDs(); err == nil {
		sample.FileDescriptors = int32(fds)
	}

	return sample, nil
}

// UpdatePrometheusMetrics updates Prometheus gauges with a resource sample.
func UpdatePrometheusMetrics(processName string, sample *ResourceSample) {
	ProcessCPUPercent.WithLabelValues(processName).Set(sample.CPUPercent)
	ProcessMemoryBytes.WithLabelValues(processName).Set(float64(sample.MemoryRSSBytes))
	ProcessMemoryPercent.WithLabelValues(processName).Set(float64(sample.MemoryPercent))
	ProcessThreads.WithLabelValues(processName).Set(float64(sample.Threads))

	if sample.FileDescriptors >= 0 {
		ProcessOpenFiles.WithLabelValues(processName).Set(float64(sample.FileDescriptors))
	}
}

// ResourceCollector manages per-process resource sample history.
type ResourceCollector struct {
	interval   time.Duration
	maxSamples int
	buffers    map[string]*TimeSeriesBuffer // key: process name
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewResourceCollector creates a new resource collector.
func NewResourceCollector(interval time.Duration, maxSamples int, logger *slog.Logger) *ResourceCollector {
	return &ResourceCollector{
		interval:   interval,
		maxSamples: maxSamples,
		buffers:    make(map[string]*TimeSeriesBuffer),
		logger:     logger.With("component", "resource_collector"),
	}
}

// GetHistory returns the time series for a process.
func (rc *ResourceCollector) GetHistory(processName string, since time.Time, limit int) []ResourceSample {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	buffer, exists := rc.buffers[processName]
	if !exists {
		return []ResourceSample{}
	}

	return buffer.GetRange(since, limit)
}

// AddSample adds a sample to the buffer for a process.
func (rc *ResourceCollector) AddSample(processName string, sample ResourceSample) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if _, exists := rc.buffers[processName]; !exists {
		rc.buffers[processName] = NewTimeSeriesBuffer(rc.maxSamples)
	}

	rc.buffers[processName].Add(sample)
}

// RemoveBuffer removes the buffer for a process no longer registered.
func (rc *ResourceCollector) RemoveBuffer(processName string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.buffers, processName)
}

// GetBufferSizes returns memory usage info.
func (rc *ResourceCollector) GetBufferSizes() map[string]int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	sizes := make(map[string]int, len(rc.buffers))
	for key, buffer := range rc.buffers {
		sizes[key] = buffer.Size()
	}

	return sizes
}

// GetInterval returns the collection interval.
func (rc *ResourceCollector) GetInterval() time.Duration {
	return rc.interval
}

// GetLatest returns the latest sample for a process if available.
func (rc *ResourceCollector) GetLatest(processName string) (ResourceSample, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	buffer, exists := rc.buffers[processName]
	if !exists {
		return ResourceSample{}, false
	}

	return buffer.Latest()
}
