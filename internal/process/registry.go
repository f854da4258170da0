package process

import (
	"fmt"
	"sync"
	"time"

	"github.com/processguard/processguard/internal/model"
)

// Registry is the in-memory map from process name to managed-process
// record: config plus runtime state plus metrics history. It holds no
// opinion on how a process is spawned or stopped — that belongs to the
// Supervisor, which consults the Registry for every operation.
type Registry struct {
	mu        sync.RWMutex
	processes map[string]*model.ManagedProcess
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{processes: make(map[string]*model.ManagedProcess)}
}

// Register creates a new entry for cfg. Returns an error if the name
// is already registered.
func (r *Registry) Register(cfg *model.ProcessConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.processes[cfg.Name]; exists {
		return fmt.Errorf("process %q already registered", cfg.Name)
	}

	r.processes[cfg.Name] = &model.ManagedProcess{
		Config: cfg,
		Status: model.StateStopped,
	}
	return nil
}

// Unregister removes name from the registry. Returns an error if the
// name is unknown or still running — callers must stop the process
// first.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	proc, ok := r.processes[name]
	if !ok {
		return fmt.Errorf("process %q not registered", name)
	}
	if proc.Status == model.StateRunning || proc.Status == model.StateStopping {
		return fmt.Errorf("process %q is still %s, stop it before unregistering", name, proc.Status)
	}

	delete(r.processes, name)
	return nil
}

// Get returns the managed process record for name.
func (r *Registry) Get(name string) (*model.ManagedProcess, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	proc, ok := r.processes[name]
	return proc, ok
}

// List returns every registered process, in no particular order.
func (r *Registry) List() []*model.ManagedProcess {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.ManagedProcess, 0, len(r.processes))
	for _, proc := range r.processes {
		out = append(out, proc)
	}
	return out
}

// Names returns the registered process names, in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.processes))
	for name := range r.processes {
		out = append(out, name)
	}
	return out
}

// setStatus transitions a process to status, managing the started_at/
// pid invariants the rest of the package relies on: started_at is set
// on every transition into RUNNING and cleared on transition into
// STOPPED or FAILED; pid is cleared whenever status leaves
// {RUNNING, STOPPING}.
func (r *Registry) setStatus(name string, status model.State, pid *int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	proc, ok := r.processes[name]
	if !ok {
		return
	}

	proc.Status = status
	switch status {
	case model.StateRunning:
		now := time.Now()
		proc.StartedAt = &now
		proc.PID = pid
	case model.StateStopped, model.StateFailed:
		proc.StartedAt = nil
		proc.PID = nil
	default:
		proc.PID = pid
	}
}

// recordRestart increments restart_count and sets last_restart. Never
// reset by stop/start; only ResetRestartCount clears it.
func (r *Registry) recordRestart(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	proc, ok := r.processes[name]
	if !ok {
		return
	}
	proc.RestartCount++
	now := time.Now()
	proc.LastRestart = &now
}

// ResetRestartCount is the deliberate reset operation the invariants
// call out: restart_count otherwise only increases.
func (r *Registry) ResetRestartCount(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	proc, ok := r.processes[name]
	if !ok {
		return fmt.Errorf("process %q not registered", name)
	}
	proc.RestartCount = 0
	proc.LastRestart = nil
	return nil
}

func (r *Registry) appendMetrics(name string, m model.ProcessMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if proc, ok := r.processes[name]; ok {
		proc.AppendMetrics(m)
	}
}
