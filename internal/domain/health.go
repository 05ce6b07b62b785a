package domain

import "time"

// HealthState is the derived judgment about a worker. Never stored; always
// computed from the record's (failures, last activity) snapshot.
type HealthState string

const (
	HealthHealthy  HealthState = "healthy"
	HealthDegraded HealthState = "degraded"
	HealthDead     HealthState = "dead"
)

// Default circuit-breaker thresholds.
const (
	DefaultDegradedAt uint32        = 3
	DefaultDeadAt     uint32        = 10
	DefaultStaleness  time.Duration = 300 * time.Second
)

// HealthThresholds configures the failure counts and staleness window that
// map a record snapshot to a HealthState.
type HealthThresholds struct {
	DegradedAt uint32        `yaml:"degraded_at"`
	DeadAt     uint32        `yaml:"dead_at"`
	Staleness  time.Duration `yaml:"staleness"`
}

// DefaultHealthThresholds returns the standard 3/10/300s thresholds.
func DefaultHealthThresholds() HealthThresholds {
	return HealthThresholds{
		DegradedAt: DefaultDegradedAt,
		DeadAt:     DefaultDeadAt,
		Staleness:  DefaultStaleness,
	}
}

// HealthSnapshot is one consistent (failures, activity) pair, taken under
// the record's lock so a concurrent writer can never produce a pair that
// never existed together.
type HealthSnapshot struct {
	ConsecutiveFailures uint32    `json:"consecutive_failures"`
	LastActivity        time.Time `json:"last_activity"`
}

// Judge derives the health state from a snapshot at the given instant.
// Failure thresholds dominate; a quiet worker degrades on staleness alone.
func (t HealthThresholds) Judge(s HealthSnapshot, now time.Time) HealthState {
	if s.ConsecutiveFailures >= t.DeadAt {
		return HealthDead
	}
	if s.ConsecutiveFailures >= t.DegradedAt {
		return HealthDegraded
	}
	if now.Sub(s.LastActivity) > t.Staleness {
		return HealthDegraded
	}
	return HealthHealthy
}
