package usecase

import (
	"sort"
	"sync"

	"switchboard/internal/domain"
)

// Catalog is the registry of personas and workers. Personas describe what
// the system can do; workers are who can do it. Safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	personas map[string]domain.Persona
	workers  map[string]domain.WorkerRef
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		personas: make(map[string]domain.Persona),
		workers:  make(map[string]domain.WorkerRef),
	}
}

// RegisterPersona adds or replaces a persona definition.
func (c *Catalog) RegisterPersona(p domain.Persona) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.personas[p.Name] = p
}

// Persona returns the persona with the given name.
func (c *Catalog) Persona(name string) (domain.Persona, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.personas[name]
	if !ok {
		return domain.Persona{}, domain.NewDomainError("Catalog.Persona", domain.ErrNotFound, name)
	}
	return p, nil
}

// Mode resolves a (persona, mode slug) pair.
func (c *Catalog) Mode(persona, slug string) (domain.Mode, error) {
	p, err := c.Persona(persona)
	if err != nil {
		return domain.Mode{}, err
	}
	m, ok := p.Mode(slug)
	if !ok {
		return domain.Mode{}, domain.NewDomainError("Catalog.Mode", domain.ErrNotFound, persona+"/"+slug)
	}
	return m, nil
}

// Personas returns all registered personas sorted by name. The slice is a
// snapshot; callers may not mutate the shared maps through it.
func (c *Catalog) Personas() []domain.Persona {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Persona, 0, len(c.personas))
	for _, p := range c.personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RegisterWorker adds a worker. Registering an already-known id is an
// ErrDuplicate; remove first to replace.
func (c *Catalog) RegisterWorker(w domain.WorkerRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.workers[w.ID()]; ok {
		return domain.NewDomainError("Catalog.RegisterWorker", domain.ErrDuplicate, w.ID())
	}
	c.workers[w.ID()] = w
	return nil
}

// RemoveWorker drops a worker by id. Removing an unknown id is a no-op.
func (c *Catalog) RemoveWorker(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.workers, id)
}

// Worker returns the worker with the given id.
func (c *Catalog) Worker(id string) (domain.WorkerRef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.workers[id]
	if !ok {
		return domain.WorkerRef{}, domain.NewDomainError("Catalog.Worker", domain.ErrNotFound, id)
	}
	return w, nil
}

// Workers returns all registered workers sorted by id.
func (c *Catalog) Workers() []domain.WorkerRef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.WorkerRef, 0, len(c.workers))
	for _, w := range c.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// WorkersFor returns the workers serving a persona, sorted by id.
func (c *Catalog) WorkersFor(persona string) []domain.WorkerRef {
	var out []domain.WorkerRef
	for _, w := range c.Workers() {
		if w.Persona() == persona {
			out = append(out, w)
		}
	}
	return out
}
