package crashpolicy

import (
	"log/slog"
	"testing"
	"time"

	"github.com/processguard/processguard/internal/config"
	"github.com/processguard/processguard/internal/model"
)

func newTestEngine(t *testing.T, processes []*config.Process) (*Engine, *[]string) {
	t.Helper()
	alerts := &[]string{}
	e := New(processes, slog.Default(), func(kind model.AlertKind, name, msg string) {
		*alerts = append(*alerts, string(kind)+":"+name)
	}, nil)
	return e, alerts
}

func proc(name string, policy *config.CrashPolicy, deps ...string) *config.Process {
	return &config.Process{Name: name, CrashPolicy: policy, DependsOn: deps}
}

func TestEngine_RestartsUnderThreshold(t *testing.T) {
	policy := &config.CrashPolicy{MaxCrashes: 3, TimeWindowMinutes: 10, ActionOnThreshold: "disable"}
	e, _ := newTestEngine(t, []*config.Process{proc("api", policy)})

	action := e.RecordCrash("api", "exit 1", nil)
	if action != model.ActionRestart {
		t.Fatalf("action = %v, want restart", action)
	}
	if ok, _ := e.CanRestart("api"); !ok {
		t.Fatal("expected CanRestart true before threshold")
	}
}

func TestEngine_DisablesAtThreshold(t *testing.T) {
	policy := &config.CrashPolicy{MaxCrashes: 2, TimeWindowMinutes: 10, ActionOnThreshold: "disable"}
	e, _ := newTestEngine(t, []*config.Process{proc("api", policy)})

	e.RecordCrash("api", "exit 1", nil)
	action := e.RecordCrash("api", "exit 1", nil)

	if action != model.ActionDisable {
		t.Fatalf("action = %v, want disable", action)
	}
	if ok, reason := e.CanRestart("api"); ok {
		t.Fatalf("expected CanRestart false after disable, reason=%q", reason)
	}
}

func TestEngine_Quarantine_ExpiresStrictlyLessThan(t *testing.T) {
	policy := &config.CrashPolicy{MaxCrashes: 1, TimeWindowMinutes: 10, ActionOnThreshold: "quarantine", QuarantineDurationMinutes: 60}
	e, _ := newTestEngine(t, []*config.Process{proc("api", policy)})

	e.RecordCrash("api", "exit 1", nil)

	// Force the quarantine to have already expired (equal-to-now counts as expired).
	e.mu.Lock()
	e.quarantined["api"] = time.Now().Add(-time.Second)
	e.mu.Unlock()

	ok, _ := e.CanRestart("api")
	if !ok {
		t.Fatal("expected expired quarantine to allow restart")
	}
	if _, stillQuarantined := e.quarantined["api"]; stillQuarantined {
		t.Fatal("expected expired quarantine entry to be cleared")
	}
}

func TestEngine_KillDependenciesCascades(t *testing.T) {
	policy := &config.CrashPolicy{MaxCrashes: 1, TimeWindowMinutes: 10, ActionOnThreshold: "kill_dependencies"}
	e, alerts := newTestEngine(t, []*config.Process{
		proc("database", policy),
		proc("api", nil, "database"),
		proc("worker", nil, "database"),
	})

	e.RecordCrash("database", "oom", nil)

	for _, dependent := range []string{"database", "api", "worker"} {
		if ok, _ := e.CanRestart(dependent); ok {
			t.Fatalf("expected %s to be disabled by cascade", dependent)
		}
	}
	if len(*alerts) != 3 {
		t.Fatalf("expected 3 disable alerts (self + 2 dependents), got %d: %v", len(*alerts), *alerts)
	}
}

// TestEngine_CascadeDisable_ClearsExistingQuarantine exercises invariant
// #5 (disabled and quarantined are disjoint): "api" is quarantined by
// its own crash-loop, then separately cascade-disabled as a dependent
// of "database" crashing past a kill_dependencies threshold. The
// cascade must evict "api" from the quarantined set, not leave it in
// both.
func TestEngine_CascadeDisable_ClearsExistingQuarantine(t *testing.T) {
	apiPolicy := &config.CrashPolicy{MaxCrashes: 1, TimeWindowMinutes: 10, ActionOnThreshold: "quarantine", QuarantineDurationMinutes: 60}
	dbPolicy := &config.CrashPolicy{MaxCrashes: 1, TimeWindowMinutes: 10, ActionOnThreshold: "kill_dependencies"}
	e, _ := newTestEngine(t, []*config.Process{
		proc("database", dbPolicy),
		proc("api", apiPolicy, "database"),
	})

	e.RecordCrash("api", "exit 1", nil)
	stats := e.CrashStatistics("api")
	if !stats.IsQuarantined {
		t.Fatal("expected api quarantined after its own crash loop")
	}
	if stats.IsDisabled {
		t.Fatal("api should not be disabled yet")
	}

	e.RecordCrash("database", "oom", nil)

	stats = e.CrashStatistics("api")
	if !stats.IsDisabled {
		t.Fatal("expected api disabled by the database cascade")
	}
	if stats.IsQuarantined {
		t.Fatal("expected cascade-disable to clear api's prior quarantine, invariant violated: both sets set simultaneously")
	}
}

func TestEngine_ForceEnable_IdempotentOnNoOp(t *testing.T) {
	e, _ := newTestEngine(t, []*config.Process{proc("api", &config.CrashPolicy{MaxCrashes: 1, ActionOnThreshold: "disable", TimeWindowMinutes: 10})})

	if e.ForceEnable("api") {
		t.Fatal("expected ForceEnable on a never-disabled process to report false")
	}

	e.RecordCrash("api", "exit 1", nil)
	if !e.ForceEnable("api") {
		t.Fatal("expected ForceEnable on a disabled process to report true")
	}
	if ok, _ := e.CanRestart("api"); !ok {
		t.Fatal("expected process restartable after force-enable")
	}
}

func TestEngine_CrashStatistics(t *testing.T) {
	policy := &config.CrashPolicy{MaxCrashes: 5, TimeWindowMinutes: 10, ActionOnThreshold: "disable"}
	e, _ := newTestEngine(t, []*config.Process{proc("api", policy)})

	e.RecordCrash("api", "exit 1", nil)
	e.RecordCrash("api", "exit 1", nil)

	stats := e.CrashStatistics("api")
	if stats.RecentCrashes != 2 {
		t.Fatalf("RecentCrashes = %d, want 2", stats.RecentCrashes)
	}
	if stats.IsDisabled {
		t.Fatal("expected not disabled below threshold")
	}
	if !stats.CanRestart {
		t.Fatal("expected CanRestart true")
	}
}
