package hostprobe

import (
	"syscall"

	"github.com/processguard/processguard/internal/model"
)

// statfsResult holds the fields of syscall.Statfs_t this package needs.
type statfsResult struct {
	total uint64
	free  uint64
}

func (s statfsResult) toDiskUsage() model.DiskUsage {
	used := s.total - s.free
	var percent float64
	if s.total > 0 {
		percent = float64(used) / float64(s.total) * 100
	}
	return model.DiskUsage{
		Total:   s.total,
		Used:    used,
		Free:    s.free,
		Percent: percent,
	}
}

func statfs(path string, out *statfsResult) error {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return err
	}
	out.total = st.Blocks * uint64(st.Bsize)
	out.free = st.Bfree * uint64(st.Bsize)
	return nil
}
