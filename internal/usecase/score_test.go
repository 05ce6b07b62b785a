package usecase

import (
	"testing"

	"switchboard/internal/domain"
)

func TestExtractKeywords(t *testing.T) {
	got := extractKeywords("Please implement a REST API for the billing service!")
	want := map[string]bool{
		"implement": true, "rest": true, "api": true, "billing": true, "service": true,
	}
	if len(got) != len(want) {
		t.Fatalf("extractKeywords() = %v, want keys %v", got, want)
	}
	for _, k := range got {
		if !want[k] {
			t.Errorf("unexpected keyword %q", k)
		}
	}
}

func TestTokensMatch(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"implement", "implementation", true},
		{"debug", "debugging", true},
		{"api", "api", true},  // shorter than 4; full prefix suffices
		{"cat", "catalog", true}, // 3-char token, min(4,3)=3 prefix
		{"code", "coffee", false},
		{"ab", "abc", false}, // below the 3-char minimum
		{"review", "revert", false},
		{"plan", "planning", true},
	}
	for _, c := range cases {
		if got := tokensMatch(c.a, c.b); got != c.want {
			t.Errorf("tokensMatch(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestScoreModePrefersMatchingWhenToUse(t *testing.T) {
	write := domain.Mode{
		Slug:        "write",
		Name:        "Write",
		Description: "Implement features and make code changes.",
		WhenToUse:   "Use when the request asks to implement, build, create, or modify code.",
	}
	review := domain.Mode{
		Slug:        "review",
		Name:        "Review",
		Description: "Review code for correctness and style.",
		WhenToUse:   "Use when the request asks for a code review or an audit.",
	}

	request := "implement a REST API for user management"
	ws := scoreMode(request, write)
	rs := scoreMode(request, review)
	if ws <= rs {
		t.Fatalf("write score %f not above review score %f for %q", ws, rs, request)
	}
	if ws <= 0 {
		t.Fatalf("write score %f should be positive", ws)
	}
}

func TestScoreModeNameBonus(t *testing.T) {
	mode := domain.Mode{Slug: "debug", Name: "Debug"}
	with := scoreMode("debug the crash in the parser", mode)
	without := scoreMode("fix the crash in the parser", mode)
	if with <= without {
		t.Fatalf("name mention should add score: with=%f without=%f", with, without)
	}
}

func TestScoreModeNoSignal(t *testing.T) {
	mode := domain.Mode{
		Slug:        "review",
		Name:        "Review",
		Description: "Review code for correctness.",
		WhenToUse:   "Use for code reviews and audits.",
	}
	if s := scoreMode("qqq zzz xxx", mode); s != 0 {
		t.Fatalf("unrelated request scored %f, want 0", s)
	}
}

func TestScoreModeCapped(t *testing.T) {
	mode := domain.Mode{
		Slug:        "chat",
		Name:        "chat",
		Description: "chat chat",
		WhenToUse:   "chat chat chat",
	}
	if s := scoreMode("chat chat chat chat", mode); s > 1 {
		t.Fatalf("score %f exceeds 1", s)
	}
}
