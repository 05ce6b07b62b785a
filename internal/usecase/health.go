package usecase

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"switchboard/internal/domain"
)

// HealthRecord tracks one worker's consecutive failure count and last
// activity time. Both fields live under a single mutex so Snapshot always
// returns a pair that existed together.
type HealthRecord struct {
	mu           sync.Mutex
	failures     uint32
	lastActivity time.Time

	now func() time.Time
}

// NewHealthRecord returns a record whose last activity is the current time.
func NewHealthRecord() *HealthRecord {
	return newHealthRecord(time.Now)
}

func newHealthRecord(now func() time.Time) *HealthRecord {
	return &HealthRecord{now: now, lastActivity: now()}
}

// RecordSuccess resets the failure count to zero and refreshes activity.
func (r *HealthRecord) RecordSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = 0
	r.lastActivity = r.now()
}

// RecordFailure increments the failure count and refreshes activity. A
// failing worker is still an active worker; only silence makes it stale.
func (r *HealthRecord) RecordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
	r.lastActivity = r.now()
}

// Snapshot returns a consistent view of the record.
func (r *HealthRecord) Snapshot() domain.HealthSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.HealthSnapshot{
		ConsecutiveFailures: r.failures,
		LastActivity:        r.lastActivity,
	}
}

// Monitor judges worker health from per-worker records and shared
// thresholds. Safe for concurrent use.
type Monitor struct {
	mu         sync.RWMutex
	records    map[string]*HealthRecord
	thresholds domain.HealthThresholds
	logger     *slog.Logger

	now func() time.Time
}

// NewMonitor creates a Monitor with the given thresholds.
func NewMonitor(thresholds domain.HealthThresholds, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		records:    make(map[string]*HealthRecord),
		thresholds: thresholds,
		logger:     logger,
		now:        time.Now,
	}
}

// Track begins monitoring a worker. Idempotent; an existing record and its
// failure history are preserved.
func (m *Monitor) Track(workerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[workerID]; ok {
		return
	}
	m.records[workerID] = newHealthRecord(m.now)
}

// RecordSuccess notes a successful interaction with the worker. Unknown
// workers are tracked implicitly.
func (m *Monitor) RecordSuccess(workerID string) {
	m.record(workerID).RecordSuccess()
}

// RecordFailure notes a failed interaction with the worker.
func (m *Monitor) RecordFailure(workerID string) {
	rec := m.record(workerID)
	rec.RecordFailure()
	snap := rec.Snapshot()
	state := m.thresholds.Judge(snap, m.now())
	if state != domain.HealthHealthy {
		m.logger.Warn("worker health declined",
			"worker_id", workerID,
			"state", string(state),
			"consecutive_failures", snap.ConsecutiveFailures)
	}
}

func (m *Monitor) record(workerID string) *HealthRecord {
	m.mu.RLock()
	rec, ok := m.records[workerID]
	m.mu.RUnlock()
	if ok {
		return rec
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[workerID]; ok {
		return rec
	}
	rec = newHealthRecord(m.now)
	m.records[workerID] = rec
	return rec
}

// State judges the current health of a worker.
func (m *Monitor) State(workerID string) (domain.HealthState, error) {
	m.mu.RLock()
	rec, ok := m.records[workerID]
	m.mu.RUnlock()
	if !ok {
		return "", domain.NewDomainError("Monitor.State", domain.ErrNotFound, "worker "+workerID)
	}
	return m.thresholds.Judge(rec.Snapshot(), m.now()), nil
}

// States returns the health of every tracked worker, keyed by worker id.
func (m *Monitor) States() map[string]domain.HealthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	out := make(map[string]domain.HealthState, len(m.records))
	for id, rec := range m.records {
		out[id] = m.thresholds.Judge(rec.Snapshot(), now)
	}
	return out
}

// Dead returns the ids of all workers currently judged Dead, sorted.
func (m *Monitor) Dead() []string {
	var out []string
	for id, state := range m.States() {
		if state == domain.HealthDead {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Forget drops the record for a worker, for example after removal.
func (m *Monitor) Forget(workerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, workerID)
}
