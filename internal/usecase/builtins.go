package usecase

import "switchboard/internal/domain"

// DefaultPersonas returns the built-in persona catalog registered at
// startup. Operators extend or replace these through configuration.
func DefaultPersonas() []domain.Persona {
	return []domain.Persona{
		{
			Name:        "assistant",
			Description: "General-purpose assistant for questions, explanations, and everyday requests.",
			DefaultMode: "chat",
			Modes: []domain.Mode{
				{
					Slug:        "chat",
					Name:        "Chat",
					Description: "Answer questions and hold open-ended conversations.",
					WhenToUse:   "Use when the request is a question, an explanation, or a conversation that does not require modifying anything.",
					ToolGroups:  []string{"all"},
				},
				{
					Slug:        "research",
					Name:        "Research",
					Description: "Gather and synthesize information from available sources.",
					WhenToUse:   "Use when the request asks to look something up, compare options, or summarize external material.",
					ToolGroups:  []string{"all"},
					Dependencies: []string{
						"web_search",
					},
				},
			},
		},
		{
			Name:        "engineer",
			Description: "Software engineer for designing, writing, reviewing, and debugging code.",
			DefaultMode: "write",
			Modes: []domain.Mode{
				{
					Slug:        "plan",
					Name:        "Plan",
					Description: "Break a technical task into an ordered implementation plan.",
					WhenToUse:   "Use when the request needs design work or task decomposition before any code is written.",
					ToolGroups:  []string{"all"},
				},
				{
					Slug:        "write",
					Name:        "Write",
					Description: "Implement features and make code changes.",
					WhenToUse:   "Use when the request asks to implement, build, create, or modify code.",
					ToolGroups:  []string{"all"},
					Dependencies: []string{
						"developer",
					},
				},
				{
					Slug:        "review",
					Name:        "Review",
					Description: "Review code for correctness, style, and safety without changing it.",
					WhenToUse:   "Use when the request asks for a code review, an audit, or feedback on existing code.",
					ToolGroups:  []string{"none"},
				},
				{
					Slug:        "debug",
					Name:        "Debug",
					Description: "Diagnose failures and propose or apply fixes.",
					WhenToUse:   "Use when the request reports an error, a failing test, a crash, or unexpected behavior.",
					ToolGroups:  []string{"all"},
					Dependencies: []string{
						"developer",
					},
				},
			},
		},
	}
}
