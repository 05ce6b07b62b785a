package usecase

import (
	"context"
	"errors"
	"testing"

	"switchboard/internal/domain"
)

func newTestControlPlane(t *testing.T) *ControlPlane {
	t.Helper()
	catalog, monitor := newRoutingFixture(t)
	engine := NewEngine(catalog, monitor, nil, defaultOptions(), nil)
	store := NewRunStore(100, nil, nil)
	pool := NewPool()
	pool.AddBuiltin(prov("developer", domain.Capability{Name: "edit"}))
	return NewControlPlane(engine, store, monitor, catalog, pool, nil)
}

func TestControlPlaneRunLifecycle(t *testing.T) {
	cp := newTestControlPlane(t)

	run, decision, err := cp.CreateRun(context.Background(), "implement and build new code for the importer")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if decision.Persona == "" {
		t.Fatalf("empty decision: %+v", decision)
	}
	if run.Status != domain.RunCreated {
		t.Fatalf("new run status = %s", run.Status)
	}

	if _, err := cp.AdvanceRun(run.ID, domain.RunInProgress, ""); err != nil {
		t.Fatalf("AdvanceRun: %v", err)
	}
	if err := cp.AppendOutput(run.ID, "partial"); err != nil {
		t.Fatalf("AppendOutput: %v", err)
	}
	if _, err := cp.AdvanceRun(run.ID, domain.RunCompleted, ""); err != nil {
		t.Fatalf("AdvanceRun to completed: %v", err)
	}

	got, err := cp.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != domain.RunCompleted || len(got.Output) != 1 {
		t.Fatalf("final run = %+v", got)
	}
	if len(cp.ListRuns()) != 1 {
		t.Fatalf("ListRuns() = %d entries", len(cp.ListRuns()))
	}
}

func TestControlPlanePauseResume(t *testing.T) {
	cp := newTestControlPlane(t)
	run, _, err := cp.CreateRun(context.Background(), "question about licensing")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	_, _ = cp.AdvanceRun(run.ID, domain.RunInProgress, "")

	if _, err := cp.PauseRun(run.ID, domain.AwaitMetadata{Reason: "approval", RequestID: "r1"}); err != nil {
		t.Fatalf("PauseRun: %v", err)
	}

	meta, err := cp.ResumeRun(run.ID)
	if err != nil {
		t.Fatalf("ResumeRun: %v", err)
	}
	if meta.RequestID != "r1" {
		t.Fatalf("meta = %+v", meta)
	}

	// A second resume loses the race it already lost.
	if _, err := cp.ResumeRun(run.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second resume error = %v, want ErrConflict", err)
	}
}

func TestControlPlaneCancel(t *testing.T) {
	cp := newTestControlPlane(t)
	run, _, err := cp.CreateRun(context.Background(), "long task")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	_, _ = cp.AdvanceRun(run.ID, domain.RunInProgress, "")

	got, err := cp.CancelRun(run.ID)
	if err != nil {
		t.Fatalf("CancelRun: %v", err)
	}
	if got.Status != domain.RunCancelling {
		t.Fatalf("status = %s, want cancelling", got.Status)
	}
	if _, err := cp.AdvanceRun(run.ID, domain.RunCancelled, ""); err != nil {
		t.Fatalf("to cancelled: %v", err)
	}
}

func TestControlPlaneWorkerManagement(t *testing.T) {
	cp := newTestControlPlane(t)

	w := domain.RemoteWorker("remote-1", "engineer", "http://10.0.0.5:7000")
	if err := cp.RegisterWorker(w); err != nil {
		t.Fatalf("RegisterWorker: %v", err)
	}
	if err := cp.RegisterWorker(w); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("duplicate register error = %v", err)
	}

	cp.ReportOutcome("remote-1", false)
	cp.ReportOutcome("remote-1", false)
	cp.ReportOutcome("remote-1", false)
	state, err := cp.WorkerHealth("remote-1")
	if err != nil {
		t.Fatalf("WorkerHealth: %v", err)
	}
	if state != domain.HealthDegraded {
		t.Fatalf("state = %s, want degraded", state)
	}

	cp.ReportOutcome("remote-1", true)
	state, _ = cp.WorkerHealth("remote-1")
	if state != domain.HealthHealthy {
		t.Fatalf("state after success = %s, want healthy", state)
	}

	all := cp.WorkerHealthAll()
	if _, ok := all["remote-1"]; !ok {
		t.Fatalf("WorkerHealthAll missing remote-1: %v", all)
	}

	cp.RemoveWorker("remote-1")
	if _, err := cp.WorkerHealth("remote-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("health after removal error = %v, want ErrNotFound", err)
	}
}

func TestControlPlaneCapabilities(t *testing.T) {
	cp := newTestControlPlane(t)

	caps := cp.ResolveCapabilities(ResolveRequest{Mode: domain.Mode{ToolGroups: []string{"all"}}})
	if len(caps) != 1 || caps[0].Provider != "developer" {
		t.Fatalf("caps = %v", caps)
	}

	resolved, missing := cp.ResolveDependencies([]string{"developer", "ghost"})
	if len(resolved) != 1 || len(missing) != 1 || missing[0] != "ghost" {
		t.Fatalf("resolved = %v, missing = %v", resolved, missing)
	}
}
