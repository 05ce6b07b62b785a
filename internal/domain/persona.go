package domain

// Persona is a named class of worker: a generalist assistant, a
// software-delivery specialist, and so on. Immutable after registration;
// each persona owns a fixed set of behavioral modes.
type Persona struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	DefaultMode string `json:"default_mode" yaml:"default_mode"`
	Modes       []Mode `json:"modes" yaml:"modes"`
}

// Mode returns the mode with the given slug, if the persona declares it.
func (p Persona) Mode(slug string) (Mode, bool) {
	for _, m := range p.Modes {
		if m.Slug == slug {
			return m, true
		}
	}
	return Mode{}, false
}

// Default returns the persona's default mode. Falls back to the first
// declared mode if the default slug is missing or invalid, and to the
// zero Mode if the persona declares no modes at all.
func (p Persona) Default() Mode {
	if m, ok := p.Mode(p.DefaultMode); ok {
		return m
	}
	if len(p.Modes) > 0 {
		return p.Modes[0]
	}
	return Mode{}
}

// Mode is one behavioral configuration of a persona. The when-to-use hint
// drives both the oracle catalog prompt and the scored fallback tier.
// Immutable once defined; looked up by (persona, slug).
type Mode struct {
	Slug        string `json:"slug" yaml:"slug"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	WhenToUse   string `json:"when_to_use" yaml:"when_to_use"`

	// ToolGroups are symbolic capability-group tags ("read", "execute",
	// GroupAll, GroupNone). Unrecognized tags are treated as literal
	// provider names during resolution.
	ToolGroups []string `json:"tool_groups,omitempty" yaml:"tool_groups,omitempty"`

	// Dependencies names providers the mode requires. When non-empty it
	// also acts as the resolver's allow-list.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}
