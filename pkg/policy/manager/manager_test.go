package manager

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T, path string) *DefaultManager {
	t.Helper()
	m, err := NewManager(&Config{Path: path}, slog.Default())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManager_LoadAndCheck(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, "access.yaml", simplePolicy)

	m := newTestManager(t, dir)
	if err := m.LoadPolicies(); err != nil {
		t.Fatalf("LoadPolicies() error = %v", err)
	}

	result, err := m.Check("access-control", map[string]interface{}{
		"role": "admin",
		"age":  30,
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !result.IsSatisfied() {
		t.Errorf("Check() = %s, want satisfied", result)
	}

	result, err = m.Check("access-control", map[string]interface{}{"role": "admin"})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !result.IsResidual() {
		t.Errorf("Check() = %s, want residual for incomplete document", result)
	}

	if _, err := m.Check("missing", nil); err == nil {
		t.Error("Check(missing) error = nil, want not found")
	}
}

func TestManager_CheckAll(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, "a.yaml", simplePolicy)
	writePolicyFile(t, dir, "b.yaml", `
id: regions
rules:
  - id: eu-only
    expr: ["in", "doc.region", ["eu"]]
`)

	m := newTestManager(t, dir)
	if err := m.LoadPolicies(); err != nil {
		t.Fatalf("LoadPolicies() error = %v", err)
	}

	results, err := m.CheckAll(map[string]interface{}{
		"role":   "admin",
		"age":    30,
		"region": "apac",
	})
	if err != nil {
		t.Fatalf("CheckAll() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("CheckAll() = %d results, want 2", len(results))
	}
	if !results["access-control"].IsSatisfied() {
		t.Errorf("access-control = %s, want satisfied", results["access-control"])
	}
	if !results["regions"].IsContradiction() {
		t.Errorf("regions = %s, want contradiction", results["regions"])
	}
}

func TestManager_ReloadKeepsLastGoodOnFailure(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, "access.yaml", simplePolicy)

	m := newTestManager(t, dir)
	if err := m.LoadPolicies(); err != nil {
		t.Fatalf("LoadPolicies() error = %v", err)
	}
	v1 := m.GetPolicyVersion()

	// Break the file and reload: the previous set must stay active.
	writePolicyFile(t, dir, "access.yaml", "id: [unclosed")
	if err := m.ReloadPolicies(); err == nil {
		t.Fatal("ReloadPolicies() error = nil, want load failure")
	}
	if m.GetLastLoadError() == nil {
		t.Error("GetLastLoadError() = nil, want recorded error")
	}
	if _, err := m.GetPolicy("access-control"); err != nil {
		t.Errorf("GetPolicy() after failed reload error = %v, want previous set retained", err)
	}
	if m.GetPolicyVersion() != v1 {
		t.Errorf("GetPolicyVersion() changed after failed reload")
	}

	// Fix the file and reload successfully.
	writePolicyFile(t, dir, "access.yaml", simplePolicy)
	if err := m.ReloadPolicies(); err != nil {
		t.Fatalf("ReloadPolicies() error = %v", err)
	}
	if m.GetLastLoadError() != nil {
		t.Errorf("GetLastLoadError() = %v, want nil after successful reload", m.GetLastLoadError())
	}
}

func TestManager_ValidateDryRun(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, "access.yaml", simplePolicy)

	m := newTestManager(t, dir)
	if err := m.ValidateDryRun(); err != nil {
		t.Fatalf("ValidateDryRun() error = %v", err)
	}
	// Dry-run must not populate the registry.
	if m.GetRegistry().Count() != 0 {
		t.Errorf("registry count = %d after dry-run, want 0", m.GetRegistry().Count())
	}
}

func TestManager_WatchDisabled(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, "access.yaml", simplePolicy)

	m, err := NewManager(&Config{Path: dir, Watch: false}, slog.Default())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	// A rejected Watch must leave no state behind, so repeated calls keep
	// failing with the same configuration error.
	for i := 0; i < 2; i++ {
		err := m.Watch(context.Background())
		if err == nil {
			t.Fatalf("Watch() call %d error = nil, want disabled error", i+1)
		}
		if strings.Contains(err.Error(), "already started") {
			t.Fatalf("Watch() call %d error = %v, want disabled error", i+1, err)
		}
	}
}

func TestManager_WatchTwice(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, "access.yaml", simplePolicy)

	m, err := NewManager(&Config{Path: dir, Watch: true}, slog.Default())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := make(chan error, 1)
	go func() { first <- m.Watch(ctx) }()

	// Wait for the first watcher to claim the slot, then a second Watch
	// must be rejected.
	deadline := time.After(2 * time.Second)
	for {
		m.watchMu.Lock()
		started := m.watchCancel != nil
		m.watchMu.Unlock()
		if started {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first Watch() never started")
		case err := <-first:
			t.Fatalf("first Watch() returned early: %v", err)
		case <-time.After(10 * time.Millisecond):
		}
	}
	if err := m.Watch(ctx); err == nil || !strings.Contains(err.Error(), "already started") {
		t.Fatalf("second Watch() error = %v, want already started", err)
	}

	// Cancelling releases the slot; the first call returns cleanly and a
	// later Watch may claim it again.
	cancel()
	if err := <-first; err != nil {
		t.Fatalf("Watch() error = %v, want nil after cancel", err)
	}
	m.watchMu.Lock()
	released := m.watchCancel == nil
	m.watchMu.Unlock()
	if !released {
		t.Error("watch slot still claimed after cancellation")
	}
}

func TestManager_InvalidConfig(t *testing.T) {
	if _, err := NewManager(nil, nil); err == nil {
		t.Error("NewManager(nil) error = nil, want error")
	}
	if _, err := NewManager(&Config{}, nil); err == nil {
		t.Error("NewManager(empty path) error = nil, want error")
	}
	if _, err := NewManager(&Config{Path: "p", ResyncSchedule: "not a cron spec"}, nil); err == nil {
		t.Error("NewManager(bad schedule) error = nil, want error")
	}
}
