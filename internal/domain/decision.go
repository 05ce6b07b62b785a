package domain

import (
	"fmt"
)

// RoutingDecision names the persona/mode that should handle a request.
// Produced fresh per request and never mutated after creation.
type RoutingDecision struct {
	Persona    string  `json:"persona"`
	Mode       string  `json:"mode"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`

	// Fallback marks decisions produced by the scored-match tier rather
	// than the classification oracle.
	Fallback bool `json:"fallback,omitempty"`

	// SubTasks is non-empty for compound requests that decompose into an
	// ordered plan. Empty for single-target decisions.
	SubTasks []SubTask `json:"sub_tasks,omitempty"`
}

// Compound reports whether the decision carries a multi-step plan.
func (d RoutingDecision) Compound() bool { return len(d.SubTasks) > 1 }

// SubTask is one step of a compound plan. DependsOn holds zero-based
// indices into the sibling list; an index may only reference a strictly
// earlier entry.
type SubTask struct {
	Description string `json:"description"`
	Persona     string `json:"persona"`
	Mode        string `json:"mode"`
	Query       string `json:"query"`
	DependsOn   []int  `json:"depends_on,omitempty"`
}

// ValidatePlan checks that every dependency index references a strictly
// earlier sibling. Self-references and forward references make the plan
// cyclic or ill-founded and are rejected.
func ValidatePlan(tasks []SubTask) error {
	for i, t := range tasks {
		for _, dep := range t.DependsOn {
			if dep < 0 || dep >= i {
				return NewDomainError("ValidatePlan", ErrInvalidPlan,
					fmt.Sprintf("sub-task %d depends on %d; indices must reference earlier entries", i, dep))
			}
		}
	}
	return nil
}
