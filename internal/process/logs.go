package process

import (
	"fmt"
	"sort"

	"github.com/processguard/processguard/internal/logger"
)

// GetLogs returns the most recent limit log entries for a registered
// process.
func (s *Supervisor) GetLogs(name string, limit int) ([]logger.LogEntry, error) {
	if _, ok := s.registry.Get(name); !ok {
		return nil, fmt.Errorf("process not found: %s", name)
	}
	if s.logStore == nil {
		return nil, nil
	}
	return s.logStore.Recent(name, limit), nil
}

// GetStackLogs aggregates recent logs across every registered process,
// newest first, capped at limit entries.
func (s *Supervisor) GetStackLogs(limit int) []logger.LogEntry {
	if s.logStore == nil {
		return nil
	}

	names := s.registry.Names()
	all := make([]logger.LogEntry, 0, len(names)*limit)
	for _, name := range names {
		all = append(all, s.logStore.Recent(name, limit)...)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}
