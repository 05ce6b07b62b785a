package usecase

import (
	crand "crypto/rand"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"switchboard/internal/domain"
)

// Archiver persists evicted runs. Implementations must tolerate being
// called while the store lock is held, so they should not call back into
// the store.
type Archiver interface {
	Archive(run domain.Run) error
}

// RunStore owns every Run. All reads hand out clones; all mutation goes
// through store operations under one mutex, which is what makes the
// check-and-transition operations atomic.
type RunStore struct {
	mu      sync.Mutex
	runs    map[string]domain.Run
	await   map[string]domain.AwaitMetadata
	cancels map[string]func()
	order   []string // creation order, for stable List output

	maxCompleted int
	archiver     Archiver
	entropy      *ulid.MonotonicEntropy
	logger       *slog.Logger

	now func() time.Time
}

// NewRunStore creates a store that retains at most maxCompleted terminal
// runs. archiver may be nil to discard evicted runs.
func NewRunStore(maxCompleted int, archiver Archiver, logger *slog.Logger) *RunStore {
	if maxCompleted <= 0 {
		maxCompleted = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunStore{
		runs:         make(map[string]domain.Run),
		await:        make(map[string]domain.AwaitMetadata),
		cancels:      make(map[string]func()),
		maxCompleted: maxCompleted,
		archiver:     archiver,
		entropy:      ulid.Monotonic(crand.Reader, 0),
		logger:       logger,
		now:          time.Now,
	}
}

// Create registers a new run in the Created state and returns its clone.
func (s *RunStore) Create(request string) domain.Run {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	run := domain.Run{
		ID:        "run_" + ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		Status:    domain.RunCreated,
		Request:   request,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	s.evictLocked()
	return run.Clone()
}

// Get returns a clone of the run.
func (s *RunStore) Get(id string) (domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return domain.Run{}, domain.NewDomainError("RunStore.Get", domain.ErrNotFound, id)
	}
	return run.Clone(), nil
}

// List returns clones of every retained run in creation order.
func (s *RunStore) List() []domain.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Run, 0, len(s.runs))
	for _, id := range s.order {
		if run, ok := s.runs[id]; ok {
			out = append(out, run.Clone())
		}
	}
	return out
}

// Transition moves a run along a state-machine edge. Illegal edges return
// ErrInvalidTransition and leave the run unchanged. Transitioning to Failed
// records the payload as the run's error message; reaching any terminal
// state stamps FinishedAt.
func (s *RunStore) Transition(id string, to domain.RunStatus, payload string) (domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return domain.Run{}, domain.NewDomainError("RunStore.Transition", domain.ErrNotFound, id)
	}
	if !run.Status.CanTransition(to) {
		return domain.Run{}, domain.NewDomainError("RunStore.Transition", domain.ErrInvalidTransition,
			string(run.Status)+" -> "+string(to))
	}

	run.Status = to
	run.UpdatedAt = s.now()
	if to == domain.RunFailed && payload != "" {
		run.Error = payload
	}
	if to.Terminal() {
		t := run.UpdatedAt
		run.FinishedAt = &t
		delete(s.await, id)
		delete(s.cancels, id)
	}
	if to == domain.RunCancelling {
		if cancel, ok := s.cancels[id]; ok {
			go cancel()
		}
	}
	s.runs[id] = run
	if to.Terminal() {
		s.evictLocked()
	}
	return run.Clone(), nil
}

// SetAwaiting parks an InProgress run and records what it is waiting for.
// The status change and the metadata write happen under one lock.
func (s *RunStore) SetAwaiting(id string, meta domain.AwaitMetadata) (domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return domain.Run{}, domain.NewDomainError("RunStore.SetAwaiting", domain.ErrNotFound, id)
	}
	if !run.Status.CanTransition(domain.RunAwaiting) {
		return domain.Run{}, domain.NewDomainError("RunStore.SetAwaiting", domain.ErrInvalidTransition,
			string(run.Status)+" -> "+string(domain.RunAwaiting))
	}

	run.Status = domain.RunAwaiting
	run.UpdatedAt = s.now()
	s.runs[id] = run
	s.await[id] = meta
	return run.Clone(), nil
}

// TakeAwaitIfAwaiting atomically claims an Awaiting run for resumption.
// Exactly one caller wins: the run's status is checked, its await metadata
// cleared, and its status set to InProgress without releasing the lock in
// between. Losers get ErrConflict and may retry or give up.
func (s *RunStore) TakeAwaitIfAwaiting(id string) (domain.AwaitMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return domain.AwaitMetadata{}, domain.NewDomainError("RunStore.TakeAwaitIfAwaiting", domain.ErrNotFound, id)
	}
	if run.Status != domain.RunAwaiting {
		return domain.AwaitMetadata{}, domain.NewDomainError("RunStore.TakeAwaitIfAwaiting", domain.ErrConflict,
			"run is "+string(run.Status))
	}

	meta := s.await[id]
	delete(s.await, id)
	run.Status = domain.RunInProgress
	run.UpdatedAt = s.now()
	s.runs[id] = run
	return meta, nil
}

// AwaitMetadata returns the pending metadata for an Awaiting run without
// claiming it.
func (s *RunStore) AwaitMetadata(id string) (domain.AwaitMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.await[id]
	if !ok {
		return domain.AwaitMetadata{}, domain.NewDomainError("RunStore.AwaitMetadata", domain.ErrNotFound, id)
	}
	return meta, nil
}

// AppendOutput adds an output chunk to a run.
func (s *RunStore) AppendOutput(id, chunk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return domain.NewDomainError("RunStore.AppendOutput", domain.ErrNotFound, id)
	}
	run.Output = append(run.Output, chunk)
	run.UpdatedAt = s.now()
	s.runs[id] = run
	return nil
}

// RegisterCancel attaches a cancel function invoked when the run enters
// Cancelling. Replaces any previous registration.
func (s *RunStore) RegisterCancel(id string, cancel func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return domain.NewDomainError("RunStore.RegisterCancel", domain.ErrNotFound, id)
	}
	s.cancels[id] = cancel
	return nil
}

// evictLocked removes the oldest-finished terminal runs above the cap.
// Non-terminal runs are never evicted regardless of count or age.
// Caller holds s.mu.
func (s *RunStore) evictLocked() {
	type finished struct {
		id string
		at time.Time
	}
	var terminal []finished
	for id, run := range s.runs {
		if run.Status.Terminal() && run.FinishedAt != nil {
			terminal = append(terminal, finished{id: id, at: *run.FinishedAt})
		}
	}
	if len(terminal) <= s.maxCompleted {
		return
	}

	sort.Slice(terminal, func(i, j int) bool { return terminal[i].at.Before(terminal[j].at) })
	for _, f := range terminal[:len(terminal)-s.maxCompleted] {
		run := s.runs[f.id]
		if s.archiver != nil {
			if err := s.archiver.Archive(run); err != nil {
				s.logger.Warn("archive evicted run failed", "run_id", f.id, "error", err)
			}
		}
		delete(s.runs, f.id)
	}

	// Compact the creation-order index.
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.runs[id]; ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
}
