package domain

import (
	"encoding/json"
	"time"
)

// RunStatus is the lifecycle state of a unit of dispatched work.
type RunStatus string

const (
	RunCreated    RunStatus = "created"
	RunInProgress RunStatus = "in_progress"
	RunAwaiting   RunStatus = "awaiting"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
	RunCancelled  RunStatus = "cancelled"
	RunCancelling RunStatus = "cancelling"
)

// legalEdges is the full transition table. Terminal states have no entry.
var legalEdges = map[RunStatus][]RunStatus{
	RunCreated:    {RunInProgress},
	RunInProgress: {RunCompleted, RunFailed, RunAwaiting, RunCancelling},
	RunAwaiting:   {RunInProgress},
	RunCancelling: {RunCancelled},
}

// Terminal reports whether the status has no outbound edges.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the edge s → to is legal.
func (s RunStatus) CanTransition(to RunStatus) bool {
	for _, next := range legalEdges[s] {
		if next == to {
			return true
		}
	}
	return false
}

// AwaitMetadata records the pending action that put a run into Awaiting.
// Taken exactly once by the winning resumer.
type AwaitMetadata struct {
	Reason    string          `json:"reason"`
	RequestID string          `json:"request_id"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Run is the unit of trackable work. Owned exclusively by the run store;
// callers only ever see copies and mutate through store operations.
// Timestamps are calendar times serialized as RFC 3339, never counters.
type Run struct {
	ID         string     `json:"id"`
	Status     RunStatus  `json:"status"`
	Request    string     `json:"request"`
	Output     []string   `json:"output,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Clone returns a deep copy safe to hand outside the store's lock.
func (r Run) Clone() Run {
	out := r
	out.Output = append([]string(nil), r.Output...)
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
