package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"switchboard/internal/domain"
)

func TestPlanExecutorDiamond(t *testing.T) {
	// 0 -> {1, 2} -> 3: the join must observe both branch outputs done.
	tasks := []domain.SubTask{
		{Description: "root", Query: "root"},
		{Description: "left", Query: "left", DependsOn: []int{0}},
		{Description: "right", Query: "right", DependsOn: []int{0}},
		{Description: "join", Query: "join", DependsOn: []int{1, 2}},
	}

	var mu sync.Mutex
	finished := make(map[string]bool)
	dispatch := func(_ context.Context, task domain.SubTask) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		for _, dep := range task.DependsOn {
			if !finished[tasks[dep].Query] {
				return "", fmt.Errorf("task %q ran before dependency %q", task.Query, tasks[dep].Query)
			}
		}
		finished[task.Query] = true
		return "out:" + task.Query, nil
	}

	e := NewPlanExecutor(dispatch, 4, 0, nil)
	results, err := e.Execute(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results", len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("task %d failed: %v", i, r.Err)
		}
		if r.Output != "out:"+tasks[i].Query {
			t.Fatalf("task %d output = %q", i, r.Output)
		}
	}
}

func TestPlanExecutorSkipsDependentsOfFailures(t *testing.T) {
	tasks := []domain.SubTask{
		{Description: "ok", Query: "a"},
		{Description: "boom", Query: "b"},
		{Description: "needs boom", Query: "c", DependsOn: []int{1}},
		{Description: "needs skip", Query: "d", DependsOn: []int{2}},
		{Description: "independent", Query: "e", DependsOn: []int{0}},
	}
	dispatch := func(_ context.Context, task domain.SubTask) (string, error) {
		if task.Query == "b" {
			return "", errors.New("exploded")
		}
		return "ok", nil
	}

	e := NewPlanExecutor(dispatch, 2, 0, nil)
	results, err := e.Execute(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if results[0].Err != nil || results[0].Skipped {
		t.Errorf("task 0 should succeed: %+v", results[0])
	}
	if results[1].Err == nil || results[1].Skipped {
		t.Errorf("task 1 should fail without being skipped: %+v", results[1])
	}
	if !results[2].Skipped {
		t.Errorf("task 2 should be skipped: %+v", results[2])
	}
	if !results[3].Skipped {
		t.Errorf("task 3 should cascade-skip: %+v", results[3])
	}
	if results[4].Err != nil || results[4].Skipped {
		t.Errorf("independent task 4 should still run: %+v", results[4])
	}
}

func TestPlanExecutorRejectsInvalidPlan(t *testing.T) {
	tasks := []domain.SubTask{{DependsOn: []int{0}}}
	dispatched := false
	e := NewPlanExecutor(func(context.Context, domain.SubTask) (string, error) {
		dispatched = true
		return "", nil
	}, 1, 0, nil)

	_, err := e.Execute(context.Background(), tasks)
	if !errors.Is(err, domain.ErrInvalidPlan) {
		t.Fatalf("error = %v, want ErrInvalidPlan", err)
	}
	if dispatched {
		t.Fatalf("invalid plan still dispatched a task")
	}
}

func TestPlanExecutorConcurrencyBound(t *testing.T) {
	const bound = 2
	tasks := make([]domain.SubTask, 8)
	for i := range tasks {
		tasks[i] = domain.SubTask{Query: fmt.Sprintf("t%d", i)}
	}

	var running, peak int32
	dispatch := func(_ context.Context, _ domain.SubTask) (string, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return "", nil
	}

	e := NewPlanExecutor(dispatch, bound, 0, nil)
	if _, err := e.Execute(context.Background(), tasks); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if p := atomic.LoadInt32(&peak); p > bound {
		t.Fatalf("peak concurrency %d exceeded bound %d", p, bound)
	}
}

func TestPlanExecutorContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []domain.SubTask{{Query: "a"}, {Query: "b", DependsOn: []int{0}}}
	e := NewPlanExecutor(func(context.Context, domain.SubTask) (string, error) {
		return "", nil
	}, 1, 0, nil)

	results, err := e.Execute(ctx, tasks)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for i, r := range results {
		if !r.Skipped {
			t.Errorf("task %d should be skipped under a cancelled context: %+v", i, r)
		}
	}
}
