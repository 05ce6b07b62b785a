package provider

import "switchboard/internal/domain"

// StaticProvider serves a fixed capability set. Used for built-in
// capabilities and as a test double.
type StaticProvider struct {
	name string
	caps []domain.Capability
}

// NewStaticProvider creates a provider with a fixed capability list. The
// Provider field of each capability is overwritten with the provider name.
func NewStaticProvider(name string, caps []domain.Capability) *StaticProvider {
	owned := make([]domain.Capability, len(caps))
	copy(owned, caps)
	for i := range owned {
		owned[i].Provider = name
	}
	return &StaticProvider{name: name, caps: owned}
}

// Name implements domain.CapabilityProvider.
func (p *StaticProvider) Name() string { return p.name }

// Capabilities implements domain.CapabilityProvider.
func (p *StaticProvider) Capabilities() []domain.Capability {
	out := make([]domain.Capability, len(p.caps))
	copy(out, p.caps)
	return out
}

var _ domain.CapabilityProvider = (*StaticProvider)(nil)
