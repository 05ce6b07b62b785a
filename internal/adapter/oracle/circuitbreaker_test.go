package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchboard/internal/domain"
	"switchboard/internal/infra/config"
)

type stubOracle struct {
	decision *domain.RoutingDecision
	err      error
	calls    int
}

func (s *stubOracle) Classify(_ context.Context, _ string, _ []domain.Persona) (*domain.RoutingDecision, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.decision, nil
}

func TestCircuitBreakerPassesThrough(t *testing.T) {
	inner := &stubOracle{decision: &domain.RoutingDecision{Persona: "engineer", Mode: "write", Confidence: 0.9}}
	cb := NewCircuitBreakerOracle(inner, config.BreakerConfig{}, nil)

	d, err := cb.Classify(context.Background(), "build it", nil)
	require.NoError(t, err)
	assert.Equal(t, "engineer", d.Persona)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &stubOracle{err: errors.New("model timeout")}
	cb := NewCircuitBreakerOracle(inner, config.BreakerConfig{MaxFailures: 3}, nil)

	for i := 0; i < 3; i++ {
		_, err := cb.Classify(context.Background(), "x", nil)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	// Open circuit fails fast without touching the inner oracle.
	before := inner.calls
	_, err := cb.Classify(context.Background(), "x", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOracleUnavailable))
	assert.Equal(t, before, inner.calls)
}

func TestCircuitBreakerInnerErrorPreserved(t *testing.T) {
	innerErr := domain.NewDomainError("stub", domain.ErrOracleUnavailable, "bad payload")
	inner := &stubOracle{err: innerErr}
	cb := NewCircuitBreakerOracle(inner, config.BreakerConfig{MaxFailures: 5}, nil)

	_, err := cb.Classify(context.Background(), "x", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOracleUnavailable))
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreakerCounts(t *testing.T) {
	inner := &stubOracle{decision: &domain.RoutingDecision{Persona: "assistant", Mode: "chat", Confidence: 1}}
	cb := NewCircuitBreakerOracle(inner, config.BreakerConfig{}, nil)

	for i := 0; i < 4; i++ {
		_, err := cb.Classify(context.Background(), "x", nil)
		require.NoError(t, err)
	}
	counts := cb.Counts()
	assert.Equal(t, uint32(4), counts.TotalSuccesses)
	assert.Equal(t, uint32(0), counts.TotalFailures)
}
