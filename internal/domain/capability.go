package domain

import (
	"context"
	"encoding/json"
)

// Special capability-group tags.
const (
	// GroupAll grants every connected provider's capabilities.
	GroupAll = "all"
	// GroupNone grants nothing.
	GroupNone = "none"
)

// Capability is one callable action exposed by a provider.
type Capability struct {
	Provider    string          `json:"provider"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`

	// OrchestrationOnly marks capabilities that manage the control plane
	// itself (delegation, meta-management, cross-session recall). Hidden
	// from dispatched workers unless the caller is the orchestration layer.
	OrchestrationOnly bool `json:"orchestration_only,omitempty"`
}

// CapabilityProvider is a connected source of capabilities. Providers may
// be attached and detached at runtime; the pool's membership is the only
// mutable part of the capability model.
type CapabilityProvider interface {
	Name() string
	Capabilities() []Capability
}

// ClassificationOracle is the external classifier the routing engine's
// primary tier consults. Implementations must honor ctx cancellation; any
// error is treated as ErrOracleUnavailable by the engine.
type ClassificationOracle interface {
	Classify(ctx context.Context, request string, catalog []Persona) (*RoutingDecision, error)
}
