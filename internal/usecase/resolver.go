package usecase

import (
	"sort"
	"strings"
	"sync"

	"switchboard/internal/domain"
)

// Provider tiers, searched in order during dependency resolution. A session
// provider shadows a platform provider of the same name, and so on down.
const (
	tierSession = iota
	tierPlatform
	tierBuiltin
	tierConfigured
	tierCount
)

// Pool holds capability providers in four shadowing tiers. Safe for
// concurrent use.
type Pool struct {
	mu    sync.RWMutex
	tiers [tierCount]map[string]domain.CapabilityProvider
}

// NewPool returns an empty provider pool.
func NewPool() *Pool {
	p := &Pool{}
	for i := range p.tiers {
		p.tiers[i] = make(map[string]domain.CapabilityProvider)
	}
	return p
}

// AttachSession registers a session-scoped provider. Session providers
// shadow every other tier and are detached when the session ends.
func (p *Pool) AttachSession(cp domain.CapabilityProvider) {
	p.add(tierSession, cp)
}

// AddPlatform registers a platform-level provider.
func (p *Pool) AddPlatform(cp domain.CapabilityProvider) {
	p.add(tierPlatform, cp)
}

// AddBuiltin registers a built-in provider.
func (p *Pool) AddBuiltin(cp domain.CapabilityProvider) {
	p.add(tierBuiltin, cp)
}

// AddConfigured registers an operator-configured provider.
func (p *Pool) AddConfigured(cp domain.CapabilityProvider) {
	p.add(tierConfigured, cp)
}

func (p *Pool) add(tier int, cp domain.CapabilityProvider) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tiers[tier][cp.Name()] = cp
}

// Remove drops a provider by name from every tier.
func (p *Pool) Remove(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.tiers {
		delete(p.tiers[i], name)
	}
}

// Provider finds a provider by name, searching session, platform, builtin,
// then configured tiers.
func (p *Pool) Provider(name string) (domain.CapabilityProvider, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i := range p.tiers {
		if cp, ok := p.tiers[i][name]; ok {
			return cp, true
		}
	}
	return nil, false
}

// Providers returns every distinct provider, highest tier winning for
// duplicate names, sorted by name.
func (p *Pool) Providers() []domain.CapabilityProvider {
	p.mu.RLock()
	defer p.mu.RUnlock()
	seen := make(map[string]domain.CapabilityProvider)
	for i := range p.tiers {
		for name, cp := range p.tiers[i] {
			if _, ok := seen[name]; !ok {
				seen[name] = cp
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]domain.CapabilityProvider, 0, len(names))
	for _, name := range names {
		out = append(out, seen[name])
	}
	return out
}

// ResolveDependencies maps each named dependency to a provider. Names that
// no tier can satisfy are returned in missing, sorted; resolution itself
// never fails.
func (p *Pool) ResolveDependencies(names []string) (map[string]domain.CapabilityProvider, []string) {
	resolved := make(map[string]domain.CapabilityProvider)
	var missing []string
	for _, name := range names {
		if _, done := resolved[name]; done {
			continue
		}
		if cp, ok := p.Provider(name); ok {
			resolved[name] = cp
			continue
		}
		missing = append(missing, name)
	}
	sort.Strings(missing)
	return resolved, missing
}

// RequireDependencies is the strict variant of ResolveDependencies for
// callers that cannot proceed with a partial set, such as mode activation.
// It returns ErrUnresolvedDependency naming what is missing.
func (p *Pool) RequireDependencies(names []string) (map[string]domain.CapabilityProvider, error) {
	resolved, missing := p.ResolveDependencies(names)
	if len(missing) > 0 {
		return nil, domain.NewDomainError("Pool.RequireDependencies",
			domain.ErrUnresolvedDependency, strings.Join(missing, ", "))
	}
	return resolved, nil
}

// ResolveRequest describes one capability resolution.
type ResolveRequest struct {
	// Mode supplies the group filter (ToolGroups) and the allow-list
	// (Dependencies).
	Mode domain.Mode

	// Orchestrator exposes orchestration-only capabilities.
	Orchestrator bool

	// BatchDelegation, when non-empty, restricts the visible providers to
	// exactly the named set before any other filter runs.
	BatchDelegation []string
}

// ResolveCapabilities produces the capability set visible to a mode. The
// filters apply in a fixed order: exclusivity, group, scope, allow-list.
// Output is sorted by (provider, name) so identical inputs always yield
// identical output.
func (p *Pool) ResolveCapabilities(req ResolveRequest) []domain.Capability {
	providers := p.Providers()

	// Exclusivity: a batch delegation pins the provider set.
	if len(req.BatchDelegation) > 0 {
		allowed := make(map[string]bool, len(req.BatchDelegation))
		for _, name := range req.BatchDelegation {
			allowed[name] = true
		}
		kept := providers[:0]
		for _, cp := range providers {
			if allowed[cp.Name()] {
				kept = append(kept, cp)
			}
		}
		providers = kept
	}

	// Group filter: "all" passes everything, "none" or an empty list drops
	// everything, otherwise literal provider names.
	providers = filterGroups(providers, req.Mode.ToolGroups)

	var out []domain.Capability
	for _, cp := range providers {
		for _, c := range cp.Capabilities() {
			// Scope filter: orchestration-only capabilities stay hidden
			// from non-orchestrators.
			if c.OrchestrationOnly && !req.Orchestrator {
				continue
			}
			out = append(out, c)
		}
	}

	// Allow-list: mode dependencies, when present, name the only providers
	// whose capabilities survive.
	if len(req.Mode.Dependencies) > 0 {
		allowed := make(map[string]bool, len(req.Mode.Dependencies))
		for _, name := range req.Mode.Dependencies {
			allowed[name] = true
		}
		kept := out[:0]
		for _, c := range out {
			if allowed[c.Provider] {
				kept = append(kept, c)
			}
		}
		out = kept
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func filterGroups(providers []domain.CapabilityProvider, groups []string) []domain.CapabilityProvider {
	if len(groups) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(groups))
	for _, g := range groups {
		switch g {
		case domain.GroupAll:
			return providers
		case domain.GroupNone:
			continue
		default:
			allowed[g] = true
		}
	}
	kept := make([]domain.CapabilityProvider, 0, len(providers))
	for _, cp := range providers {
		if allowed[cp.Name()] {
			kept = append(kept, cp)
		}
	}
	return kept
}
