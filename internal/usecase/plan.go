package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"switchboard/internal/domain"
	"switchboard/internal/infra/tracer"
)

// DispatchFunc executes one sub-task and returns its output.
type DispatchFunc func(ctx context.Context, task domain.SubTask) (string, error)

// TaskResult is the outcome of one sub-task in a compound plan.
type TaskResult struct {
	Index   int    `json:"index"`
	Output  string `json:"output,omitempty"`
	Err     error  `json:"-"`
	Skipped bool   `json:"skipped,omitempty"`
}

// PlanExecutor runs a compound plan's sub-tasks with bounded concurrency,
// honoring dependency edges. A task whose dependency failed or was skipped
// is skipped itself; independent siblings keep running.
type PlanExecutor struct {
	dispatch      DispatchFunc
	maxConcurrent int
	taskTimeout   time.Duration
	logger        *slog.Logger
}

// NewPlanExecutor creates an executor. maxConcurrent caps how many
// sub-tasks run at once; taskTimeout bounds each task (zero disables the
// per-task deadline).
func NewPlanExecutor(dispatch DispatchFunc, maxConcurrent int, taskTimeout time.Duration, logger *slog.Logger) *PlanExecutor {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanExecutor{
		dispatch:      dispatch,
		maxConcurrent: maxConcurrent,
		taskTimeout:   taskTimeout,
		logger:        logger,
	}
}

// Execute runs every sub-task and returns results in sibling order. The
// plan is validated first; an ill-founded dependency graph fails before
// anything is dispatched.
func (e *PlanExecutor) Execute(ctx context.Context, tasks []domain.SubTask) ([]TaskResult, error) {
	ctx, span := tracer.StartSpan(ctx, "plan.execute")
	defer span.End()
	span.SetAttributes(tracer.IntAttr("plan.tasks", len(tasks)))

	if err := domain.ValidatePlan(tasks); err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	results := make([]TaskResult, len(tasks))
	done := make([]chan struct{}, len(tasks))
	for i := range done {
		done[i] = make(chan struct{})
	}

	sem := make(chan struct{}, e.maxConcurrent)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task domain.SubTask) {
			defer wg.Done()
			defer close(done[i])

			// Dependencies reference strictly earlier siblings, so waiting
			// on their done channels cannot deadlock.
			for _, dep := range task.DependsOn {
				select {
				case <-done[dep]:
				case <-ctx.Done():
					results[i] = TaskResult{Index: i, Err: ctx.Err(), Skipped: true}
					return
				}
				if results[dep].Err != nil || results[dep].Skipped {
					results[i] = TaskResult{
						Index:   i,
						Err:     fmt.Errorf("dependency %d did not complete", dep),
						Skipped: true,
					}
					e.logger.Debug("sub-task skipped", "index", i, "failed_dependency", dep)
					return
				}
			}

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = TaskResult{Index: i, Err: ctx.Err(), Skipped: true}
				return
			}
			if ctx.Err() != nil {
				results[i] = TaskResult{Index: i, Err: ctx.Err(), Skipped: true}
				return
			}

			taskCtx := ctx
			if e.taskTimeout > 0 {
				var cancel context.CancelFunc
				taskCtx, cancel = context.WithTimeout(ctx, e.taskTimeout)
				defer cancel()
			}

			output, err := e.dispatch(taskCtx, task)
			results[i] = TaskResult{Index: i, Output: output, Err: err}
			if err != nil {
				e.logger.Warn("sub-task failed",
					"index", i,
					"persona", task.Persona,
					"mode", task.Mode,
					"error", err)
			}
		}(i, task)
	}

	wg.Wait()
	tracer.SetOK(span)
	return results, nil
}
