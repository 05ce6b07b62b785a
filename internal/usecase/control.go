package usecase

import (
	"context"
	"log/slog"

	"switchboard/internal/domain"
	"switchboard/internal/infra/tracer"
)

// ControlPlane is the facade the transport layer talks to. It ties the
// routing engine, run store, health monitor, and capability pool together
// behind one surface.
type ControlPlane struct {
	engine  *Engine
	store   *RunStore
	monitor *Monitor
	catalog *Catalog
	pool    *Pool
	logger  *slog.Logger
}

// NewControlPlane wires the control plane from its parts.
func NewControlPlane(engine *Engine, store *RunStore, monitor *Monitor, catalog *Catalog, pool *Pool, logger *slog.Logger) *ControlPlane {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlPlane{
		engine:  engine,
		store:   store,
		monitor: monitor,
		catalog: catalog,
		pool:    pool,
		logger:  logger,
	}
}

// Route classifies a request without creating a run.
func (cp *ControlPlane) Route(ctx context.Context, request string) (*domain.RoutingDecision, error) {
	decision, err := cp.engine.Route(ctx, request)
	if err != nil {
		return nil, domain.WrapOp("ControlPlane.Route", err)
	}
	cp.logger.Info("request routed",
		"persona", decision.Persona,
		"mode", decision.Mode,
		"confidence", decision.Confidence,
		"fallback", decision.Fallback,
		"sub_tasks", len(decision.SubTasks))
	return decision, nil
}

// CreateRun routes a request and registers a run for it. The run starts in
// Created; the caller transitions it to InProgress when dispatch begins.
func (cp *ControlPlane) CreateRun(ctx context.Context, request string) (domain.Run, *domain.RoutingDecision, error) {
	ctx, span := tracer.StartSpan(ctx, "controlplane.create_run")
	defer span.End()

	decision, err := cp.Route(ctx, request)
	if err != nil {
		tracer.RecordError(span, err)
		return domain.Run{}, nil, err
	}

	run := cp.store.Create(request)
	span.SetAttributes(
		tracer.StringAttr("run.id", run.ID),
		tracer.StringAttr("route.persona", decision.Persona),
	)
	tracer.SetOK(span)
	cp.logger.Info("run created", "run_id", run.ID, "persona", decision.Persona, "mode", decision.Mode)
	return run, decision, nil
}

// AdvanceRun moves a run along the lifecycle state machine.
func (cp *ControlPlane) AdvanceRun(id string, to domain.RunStatus, payload string) (domain.Run, error) {
	run, err := cp.store.Transition(id, to, payload)
	if err != nil {
		return domain.Run{}, domain.WrapOp("ControlPlane.AdvanceRun", err)
	}
	cp.logger.Info("run advanced", "run_id", id, "status", string(to))
	return run, nil
}

// PauseRun parks an InProgress run to wait on an external action.
func (cp *ControlPlane) PauseRun(id string, meta domain.AwaitMetadata) (domain.Run, error) {
	run, err := cp.store.SetAwaiting(id, meta)
	if err != nil {
		return domain.Run{}, domain.WrapOp("ControlPlane.PauseRun", err)
	}
	cp.logger.Info("run awaiting", "run_id", id, "reason", meta.Reason)
	return run, nil
}

// ResumeRun claims an Awaiting run. Exactly one concurrent caller receives
// the await metadata; the rest get ErrConflict.
func (cp *ControlPlane) ResumeRun(id string) (domain.AwaitMetadata, error) {
	meta, err := cp.store.TakeAwaitIfAwaiting(id)
	if err != nil {
		return domain.AwaitMetadata{}, domain.WrapOp("ControlPlane.ResumeRun", err)
	}
	cp.logger.Info("run resumed", "run_id", id, "reason", meta.Reason)
	return meta, nil
}

// CancelRun requests cancellation of an InProgress run.
func (cp *ControlPlane) CancelRun(id string) (domain.Run, error) {
	run, err := cp.store.Transition(id, domain.RunCancelling, "")
	if err != nil {
		return domain.Run{}, domain.WrapOp("ControlPlane.CancelRun", err)
	}
	cp.logger.Info("run cancelling", "run_id", id)
	return run, nil
}

// GetRun returns a clone of a run.
func (cp *ControlPlane) GetRun(id string) (domain.Run, error) {
	return cp.store.Get(id)
}

// ListRuns returns clones of all retained runs.
func (cp *ControlPlane) ListRuns() []domain.Run {
	return cp.store.List()
}

// AppendOutput records an output chunk against a run.
func (cp *ControlPlane) AppendOutput(id, chunk string) error {
	return domain.WrapOp("ControlPlane.AppendOutput", cp.store.AppendOutput(id, chunk))
}

// ReportOutcome feeds a worker interaction result into the health monitor.
func (cp *ControlPlane) ReportOutcome(workerID string, success bool) {
	if success {
		cp.monitor.RecordSuccess(workerID)
		return
	}
	cp.monitor.RecordFailure(workerID)
}

// WorkerHealth judges one worker's current health.
func (cp *ControlPlane) WorkerHealth(workerID string) (domain.HealthState, error) {
	state, err := cp.monitor.State(workerID)
	if err != nil {
		return "", domain.WrapOp("ControlPlane.WorkerHealth", err)
	}
	return state, nil
}

// WorkerHealthAll judges every tracked worker.
func (cp *ControlPlane) WorkerHealthAll() map[string]domain.HealthState {
	return cp.monitor.States()
}

// RegisterWorker adds a worker to the catalog and starts tracking it.
func (cp *ControlPlane) RegisterWorker(w domain.WorkerRef) error {
	if err := cp.catalog.RegisterWorker(w); err != nil {
		return domain.WrapOp("ControlPlane.RegisterWorker", err)
	}
	cp.monitor.Track(w.ID())
	cp.logger.Info("worker registered", "worker_id", w.ID(), "persona", w.Persona(), "kind", string(w.Kind()))
	return nil
}

// RemoveWorker drops a worker from the catalog and the monitor.
func (cp *ControlPlane) RemoveWorker(id string) {
	cp.catalog.RemoveWorker(id)
	cp.monitor.Forget(id)
	cp.logger.Info("worker removed", "worker_id", id)
}

// ResolveCapabilities produces the capability set visible to a mode.
func (cp *ControlPlane) ResolveCapabilities(req ResolveRequest) []domain.Capability {
	return cp.pool.ResolveCapabilities(req)
}

// ResolveDependencies maps dependency names to providers, reporting what
// could not be satisfied.
func (cp *ControlPlane) ResolveDependencies(names []string) (map[string]domain.CapabilityProvider, []string) {
	resolved, missing := cp.pool.ResolveDependencies(names)
	if len(missing) > 0 {
		cp.logger.Warn("unresolved capability dependencies", "missing", missing)
	}
	return resolved, missing
}
