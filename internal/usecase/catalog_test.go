package usecase

import (
	"errors"
	"testing"

	"switchboard/internal/domain"
)

func testPersona(name, defaultMode string, modes ...string) domain.Persona {
	p := domain.Persona{Name: name, DefaultMode: defaultMode}
	for _, m := range modes {
		p.Modes = append(p.Modes, domain.Mode{Slug: m, Name: m})
	}
	return p
}

func TestCatalogPersonaLookup(t *testing.T) {
	c := NewCatalog()
	c.RegisterPersona(testPersona("engineer", "write", "plan", "write"))

	p, err := c.Persona("engineer")
	if err != nil {
		t.Fatalf("Persona: %v", err)
	}
	if p.Name != "engineer" {
		t.Fatalf("Persona().Name = %q", p.Name)
	}

	if _, err := c.Persona("nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Persona(unknown) error = %v, want ErrNotFound", err)
	}

	m, err := c.Mode("engineer", "plan")
	if err != nil {
		t.Fatalf("Mode: %v", err)
	}
	if m.Slug != "plan" {
		t.Fatalf("Mode().Slug = %q", m.Slug)
	}
	if _, err := c.Mode("engineer", "paint"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Mode(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestCatalogPersonasSorted(t *testing.T) {
	c := NewCatalog()
	c.RegisterPersona(testPersona("zeta", "a", "a"))
	c.RegisterPersona(testPersona("alpha", "a", "a"))
	c.RegisterPersona(testPersona("mid", "a", "a"))

	got := c.Personas()
	if len(got) != 3 || got[0].Name != "alpha" || got[1].Name != "mid" || got[2].Name != "zeta" {
		t.Fatalf("Personas() not sorted: %v", got)
	}
}

func TestCatalogWorkerRegistration(t *testing.T) {
	c := NewCatalog()
	if err := c.RegisterWorker(domain.BuiltinWorker("w1", "engineer")); err != nil {
		t.Fatalf("RegisterWorker: %v", err)
	}
	if err := c.RegisterWorker(domain.BuiltinWorker("w1", "assistant")); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("duplicate registration error = %v, want ErrDuplicate", err)
	}

	c.RemoveWorker("w1")
	if err := c.RegisterWorker(domain.BuiltinWorker("w1", "assistant")); err != nil {
		t.Fatalf("register after remove: %v", err)
	}

	// Removing an unknown id is a no-op.
	c.RemoveWorker("ghost")
}

func TestCatalogWorkersFor(t *testing.T) {
	c := NewCatalog()
	_ = c.RegisterWorker(domain.BuiltinWorker("b", "engineer"))
	_ = c.RegisterWorker(domain.RemoteWorker("a", "engineer", "http://localhost:9000"))
	_ = c.RegisterWorker(domain.BuiltinWorker("c", "assistant"))

	got := c.WorkersFor("engineer")
	if len(got) != 2 || got[0].ID() != "a" || got[1].ID() != "b" {
		t.Fatalf("WorkersFor(engineer) = %v", got)
	}
}

func TestPersonaDefaultMode(t *testing.T) {
	p := domain.Persona{
		Name:        "x",
		DefaultMode: "second",
		Modes: []domain.Mode{
			{Slug: "first"},
			{Slug: "second"},
		},
	}
	if p.Default().Slug != "second" {
		t.Fatalf("Default() = %q, want second", p.Default().Slug)
	}

	// An unknown default falls back to the first mode.
	p.DefaultMode = "missing"
	if p.Default().Slug != "first" {
		t.Fatalf("Default() fallback = %q, want first", p.Default().Slug)
	}
}
