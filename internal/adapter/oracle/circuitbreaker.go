package oracle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"switchboard/internal/domain"
	"switchboard/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 60 * time.Second
	defaultCBInterval    time.Duration = 120 * time.Second
)

// CircuitBreakerOracle wraps a ClassificationOracle with circuit breaker
// protection. When the wrapped oracle fails repeatedly, the circuit opens
// and subsequent calls fail fast as ErrOracleUnavailable, which sends the
// routing engine straight to its fallback tier without waiting on a dead
// endpoint.
type CircuitBreakerOracle struct {
	inner   domain.ClassificationOracle
	breaker *gobreaker.CircuitBreaker[*domain.RoutingDecision]
	logger  *slog.Logger
}

// NewCircuitBreakerOracle wraps inner with a circuit breaker.
// Zero-valued cfg fields fall back to defaults.
func NewCircuitBreakerOracle(inner domain.ClassificationOracle, cfg config.BreakerConfig, logger *slog.Logger) *CircuitBreakerOracle {
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[*domain.RoutingDecision](gobreaker.Settings{
		Name:        "oracle",
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &CircuitBreakerOracle{
		inner:   inner,
		breaker: cb,
		logger:  logger,
	}
}

// Classify implements domain.ClassificationOracle. Calls are routed through
// the circuit breaker.
func (o *CircuitBreakerOracle) Classify(ctx context.Context, request string, catalog []domain.Persona) (*domain.RoutingDecision, error) {
	decision, err := o.breaker.Execute(func() (*domain.RoutingDecision, error) {
		return o.inner.Classify(ctx, request, catalog)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domain.NewDomainError("CircuitBreakerOracle.Classify",
				domain.ErrOracleUnavailable, "circuit open")
		}
		return nil, err
	}
	return decision, nil
}

// State returns the current circuit breaker state for monitoring.
func (o *CircuitBreakerOracle) State() gobreaker.State {
	return o.breaker.State()
}

// Counts returns the current circuit breaker failure/success counts.
func (o *CircuitBreakerOracle) Counts() gobreaker.Counts {
	return o.breaker.Counts()
}

// Compile-time interface checks.
var (
	_ domain.ClassificationOracle = (*CircuitBreakerOracle)(nil)
	_ domain.ClassificationOracle = (*BedrockOracle)(nil)
)
