package usecase

import (
	"context"
	"log/slog"

	"switchboard/internal/domain"
	"switchboard/internal/infra/tracer"
)

// Engine routes requests to a persona/mode in tiers: a single registered
// worker short-circuits everything, the classification oracle is consulted
// next, and keyword scoring over the catalog is the local fallback.
type Engine struct {
	catalog *Catalog
	monitor *Monitor
	oracle  domain.ClassificationOracle // nil when disabled

	minConfidence  float64
	fallbackFloor  float64
	defaultPersona string
	defaultMode    string

	logger *slog.Logger
}

// EngineOptions tunes engine behavior.
type EngineOptions struct {
	// MinOracleConfidence is the floor below which an oracle decision is
	// discarded in favor of the fallback tier.
	MinOracleConfidence float64

	// FallbackFloor is the score below which the fallback tier routes to
	// the default persona instead of the best-scoring one.
	FallbackFloor float64

	// DefaultPersona and DefaultMode receive requests nothing matches.
	// An empty DefaultPersona disables the default and makes unmatched
	// requests fail with ErrNoViableWorker.
	DefaultPersona string
	DefaultMode    string
}

// NewEngine creates a routing engine. oracle may be nil to run with the
// fallback tier only.
func NewEngine(catalog *Catalog, monitor *Monitor, oracle domain.ClassificationOracle, opts EngineOptions, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		catalog:        catalog,
		monitor:        monitor,
		oracle:         oracle,
		minConfidence:  opts.MinOracleConfidence,
		fallbackFloor:  opts.FallbackFloor,
		defaultPersona: opts.DefaultPersona,
		defaultMode:    opts.DefaultMode,
		logger:         logger,
	}
}

// Route produces a routing decision for the request.
func (e *Engine) Route(ctx context.Context, request string) (*domain.RoutingDecision, error) {
	ctx, span := tracer.StartSpan(ctx, "engine.route")
	defer span.End()

	// A single registered worker makes classification pointless.
	if workers := e.catalog.Workers(); len(workers) == 1 {
		w := workers[0]
		persona, err := e.catalog.Persona(w.Persona())
		if err != nil {
			tracer.RecordError(span, err)
			return nil, err
		}
		mode := persona.Default()
		span.SetAttributes(
			tracer.StringAttr("route.tier", "single"),
			tracer.StringAttr("route.persona", persona.Name),
		)
		tracer.SetOK(span)
		return &domain.RoutingDecision{
			Persona:    persona.Name,
			Mode:       mode.Slug,
			Confidence: 1.0,
			Reasoning:  "only one worker registered",
		}, nil
	}

	if e.oracle != nil {
		decision, err := e.classify(ctx, request)
		if err == nil {
			span.SetAttributes(
				tracer.StringAttr("route.tier", "oracle"),
				tracer.StringAttr("route.persona", decision.Persona),
				tracer.FloatAttr("route.confidence", decision.Confidence),
			)
			tracer.SetOK(span)
			return decision, nil
		}
		e.logger.Debug("oracle tier declined, falling back", "error", err)
	}

	decision, err := e.fallback(request)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		tracer.StringAttr("route.tier", "fallback"),
		tracer.StringAttr("route.persona", decision.Persona),
		tracer.FloatAttr("route.confidence", decision.Confidence),
	)
	tracer.SetOK(span)
	return decision, nil
}

// classify runs the oracle tier and validates its decision. Any problem
// returns an error so Route falls through to the fallback tier.
func (e *Engine) classify(ctx context.Context, request string) (*domain.RoutingDecision, error) {
	decision, err := e.oracle.Classify(ctx, request, e.catalog.Personas())
	if err != nil {
		return nil, err
	}

	if decision.Confidence < 0 {
		decision.Confidence = 0
	}
	if decision.Confidence > 1 {
		decision.Confidence = 1
	}
	if decision.Confidence < e.minConfidence {
		return nil, domain.NewDomainError("Engine.classify", domain.ErrOracleUnavailable,
			"confidence below threshold")
	}
	if _, err := e.catalog.Mode(decision.Persona, decision.Mode); err != nil {
		return nil, domain.NewDomainError("Engine.classify", domain.ErrOracleUnavailable,
			"oracle named unknown target "+decision.Persona+"/"+decision.Mode)
	}
	if err := domain.ValidatePlan(decision.SubTasks); err != nil {
		return nil, domain.NewDomainError("Engine.classify", domain.ErrOracleUnavailable,
			"oracle produced invalid plan: "+err.Error())
	}
	for _, t := range decision.SubTasks {
		if _, err := e.catalog.Mode(t.Persona, t.Mode); err != nil {
			return nil, domain.NewDomainError("Engine.classify", domain.ErrOracleUnavailable,
				"plan names unknown target "+t.Persona+"/"+t.Mode)
		}
	}
	return decision, nil
}

// fallback scores every mode of every persona that has at least one
// non-Dead worker. Healthy workers are preferred over degraded ones; a best
// score under the floor routes to the default persona.
func (e *Engine) fallback(request string) (*domain.RoutingDecision, error) {
	type candidate struct {
		persona  domain.Persona
		mode     domain.Mode
		score    float64
		degraded bool
	}

	states := e.monitor.States()
	viable := make(map[string]bool)  // persona -> has non-dead worker
	healthy := make(map[string]bool) // persona -> has healthy worker
	for _, w := range e.catalog.Workers() {
		state, tracked := states[w.ID()]
		if !tracked {
			state = domain.HealthHealthy
		}
		if state == domain.HealthDead {
			continue
		}
		viable[w.Persona()] = true
		if state == domain.HealthHealthy {
			healthy[w.Persona()] = true
		}
	}

	var best *candidate
	for _, p := range e.catalog.Personas() {
		if !viable[p.Name] {
			continue
		}
		for _, m := range p.Modes {
			c := candidate{persona: p, mode: m, score: scoreMode(request, m), degraded: !healthy[p.Name]}
			if best == nil || better(c.score, c.degraded, best.score, best.degraded) {
				cc := c
				best = &cc
			}
		}
	}

	if best != nil && best.score >= e.fallbackFloor {
		return &domain.RoutingDecision{
			Persona:    best.persona.Name,
			Mode:       best.mode.Slug,
			Confidence: best.score,
			Reasoning:  "keyword match on mode metadata",
			Fallback:   true,
		}, nil
	}

	if e.defaultPersona != "" {
		if _, err := e.catalog.Mode(e.defaultPersona, e.defaultMode); err == nil {
			conf := 0.0
			if best != nil {
				conf = best.score
			}
			return &domain.RoutingDecision{
				Persona:    e.defaultPersona,
				Mode:       e.defaultMode,
				Confidence: conf,
				Reasoning:  "no mode scored above the floor; using default",
				Fallback:   true,
			}, nil
		}
	}

	return nil, domain.NewDomainError("Engine.fallback", domain.ErrNoViableWorker,
		"no persona with a live worker matched the request")
}

// better orders candidates: higher score wins, and at an equal score a
// persona with a healthy worker beats one with only degraded workers.
func better(score float64, degraded bool, bestScore float64, bestDegraded bool) bool {
	if score != bestScore {
		return score > bestScore
	}
	return bestDegraded && !degraded
}
