package config

import (
	"fmt"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a
// *ValidationError when one or more problems are found, allowing callers to
// inspect all issues at once.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateHealth(cfg, ve)
	validateRouting(cfg, ve)
	validateRuns(cfg, ve)
	validateOracle(cfg, ve)
	validateProviders(cfg, ve)
	validateWorkers(cfg, ve)
	validatePruner(cfg, ve)
	validateExecutor(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", cfg.Logger.Level)
	}
	if !validLogFormats[strings.ToLower(cfg.Logger.Format)] {
		ve.Add("logger.format %q is invalid (want: text, json)", cfg.Logger.Format)
	}
}

var validExporters = map[string]bool{
	"noop": true, "stdout": true, "": true,
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if cfg.Tracer.Enabled && !validExporters[cfg.Tracer.Exporter] {
		ve.Add("tracer.exporter %q is invalid (want: noop, stdout)", cfg.Tracer.Exporter)
	}
}

func validateHealth(cfg *Config, ve *ValidationError) {
	if cfg.Health.DegradedAt == 0 {
		ve.Add("health.degraded_at must be > 0")
	}
	if cfg.Health.DeadAt < cfg.Health.DegradedAt {
		ve.Add("health.dead_at (%d) must be >= health.degraded_at (%d)",
			cfg.Health.DeadAt, cfg.Health.DegradedAt)
	}
	if cfg.Health.Staleness <= 0 {
		ve.Add("health.staleness must be > 0")
	}
}

func validateRouting(cfg *Config, ve *ValidationError) {
	if cfg.Routing.MinOracleConfidence < 0 || cfg.Routing.MinOracleConfidence > 1 {
		ve.Add("routing.min_oracle_confidence must be between 0 and 1")
	}
	if cfg.Routing.FallbackFloor < 0 || cfg.Routing.FallbackFloor > 1 {
		ve.Add("routing.fallback_floor must be between 0 and 1")
	}
	if cfg.Routing.DefaultPersona != "" && cfg.Routing.DefaultMode == "" {
		ve.Add("routing.default_mode is required when default_persona is set")
	}
}

func validateRuns(cfg *Config, ve *ValidationError) {
	if cfg.Runs.MaxCompleted <= 0 {
		ve.Add("runs.max_completed must be > 0")
	}
}

func validateOracle(cfg *Config, ve *ValidationError) {
	if !cfg.Oracle.Enabled {
		return
	}
	if cfg.Oracle.Region == "" {
		ve.Add("oracle.region is required when oracle is enabled")
	}
	if cfg.Oracle.Model == "" {
		ve.Add("oracle.model is required when oracle is enabled")
	}
	if cfg.Oracle.MaxTokens <= 0 {
		ve.Add("oracle.max_tokens must be > 0 when oracle is enabled")
	}
	if cfg.Oracle.Timeout <= 0 {
		ve.Add("oracle.timeout must be > 0 when oracle is enabled")
	}
	if cfg.Oracle.RequestsPerMinute <= 0 {
		ve.Add("oracle.requests_per_minute must be > 0 when oracle is enabled")
	}
	if cfg.Oracle.Breaker.MaxFailures == 0 {
		ve.Add("oracle.breaker.max_failures must be > 0 when oracle is enabled")
	}
	if cfg.Oracle.Breaker.Timeout <= 0 {
		ve.Add("oracle.breaker.timeout must be > 0 when oracle is enabled")
	}
}

var validTransports = map[string]bool{"stdio": true, "http": true}

func validateProviders(cfg *Config, ve *ValidationError) {
	names := make(map[string]bool)
	for i, p := range cfg.Providers {
		if p.Name == "" {
			ve.Add("providers[%d].name must not be empty", i)
		} else if names[p.Name] {
			ve.Add("providers[%d].name %q is duplicate", i, p.Name)
		}
		names[p.Name] = true
		if !validTransports[p.Transport] {
			ve.Add("providers[%d].transport %q is invalid (want: stdio, http)", i, p.Transport)
		}
		if p.Transport == "stdio" && p.Command == "" {
			ve.Add("providers[%d].command is required for stdio transport", i)
		}
		if p.Transport == "http" && p.URL == "" {
			ve.Add("providers[%d].url is required for http transport", i)
		}
	}
}

var validWorkerKinds = map[string]bool{"builtin": true, "process": true, "remote": true}

func validateWorkers(cfg *Config, ve *ValidationError) {
	ids := make(map[string]bool)
	for i, w := range cfg.Workers {
		if w.ID == "" {
			ve.Add("workers[%d].id must not be empty", i)
		} else if ids[w.ID] {
			ve.Add("workers[%d].id %q is duplicate", i, w.ID)
		}
		ids[w.ID] = true
		if w.Persona == "" {
			ve.Add("workers[%d].persona must not be empty", i)
		}
		if !validWorkerKinds[w.Kind] {
			ve.Add("workers[%d].kind %q is invalid (want: builtin, process, remote)", i, w.Kind)
		}
		if w.Kind == "process" && w.Command == "" {
			ve.Add("workers[%d].command is required for process workers", i)
		}
		if w.Kind == "remote" && w.Endpoint == "" {
			ve.Add("workers[%d].endpoint is required for remote workers", i)
		}
	}
}

func validatePruner(cfg *Config, ve *ValidationError) {
	if cfg.Pruner.Enabled && cfg.Pruner.Schedule == "" {
		ve.Add("pruner.schedule is required when pruner is enabled")
	}
}

func validateExecutor(cfg *Config, ve *ValidationError) {
	if cfg.Executor.MaxConcurrent <= 0 {
		ve.Add("executor.max_concurrent must be > 0")
	}
	if cfg.Executor.TaskTimeout <= 0 {
		ve.Add("executor.task_timeout must be > 0")
	}
}
