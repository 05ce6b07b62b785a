package domain

import (
	"errors"
	"fmt"
)

// Category sentinels for registry lookups.
var (
	ErrNotFound  = fmt.Errorf("not found")
	ErrDuplicate = fmt.Errorf("duplicate")
)

// Sentinel errors for the control plane.
var (
	// ErrInvalidTransition is returned when a run is asked to move along an
	// edge the status state machine does not allow. The run is unchanged.
	ErrInvalidTransition = fmt.Errorf("invalid status transition")

	// ErrConflict is returned to the loser of a resume race: the run was
	// already taken out of Awaiting by another caller. Retryable.
	ErrConflict = fmt.Errorf("conflicting concurrent update")

	// ErrUnresolvedDependency marks a named capability dependency that no
	// provider tier could satisfy. Non-fatal; carried in the missing set.
	ErrUnresolvedDependency = fmt.Errorf("unresolved capability dependency")

	// ErrOracleUnavailable covers every way the classification oracle can
	// fail to produce a usable decision: disabled, timed out, cancelled,
	// open circuit, or an unparseable response. Always recovered locally
	// by the scored-match tier.
	ErrOracleUnavailable = fmt.Errorf("classification oracle unavailable")

	// ErrNoViableWorker means every candidate is Dead or scored below the
	// floor and no default persona is configured. Fatal to the route call.
	ErrNoViableWorker = fmt.Errorf("no viable worker")

	// ErrInvalidPlan marks a compound plan whose dependency indices
	// reference the task itself or a later sibling.
	ErrInvalidPlan = fmt.Errorf("invalid sub-task plan")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "RunStore.Transition")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryable reports whether err is a transient error that may succeed on
// retry. Resume-race losers retry once the winner finishes its turn.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// ErrorCode is a machine-parseable error category for monitoring.
type ErrorCode string

const (
	CodeUnknown              ErrorCode = "UNKNOWN"
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodeDuplicate            ErrorCode = "DUPLICATE"
	CodeInvalidTransition    ErrorCode = "INVALID_TRANSITION"
	CodeConflict             ErrorCode = "CONFLICT"
	CodeUnresolvedDependency ErrorCode = "UNRESOLVED_DEPENDENCY"
	CodeOracleUnavailable    ErrorCode = "ORACLE_UNAVAILABLE"
	CodeNoViableWorker       ErrorCode = "NO_VIABLE_WORKER"
	CodeInvalidPlan          ErrorCode = "INVALID_PLAN"
)

var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:             CodeNotFound,
	ErrDuplicate:            CodeDuplicate,
	ErrInvalidTransition:    CodeInvalidTransition,
	ErrConflict:             CodeConflict,
	ErrUnresolvedDependency: CodeUnresolvedDependency,
	ErrOracleUnavailable:    CodeOracleUnavailable,
	ErrNoViableWorker:       CodeNoViableWorker,
	ErrInvalidPlan:          CodeInvalidPlan,
}

// ErrorCodeOf returns the machine-parseable code for the given error.
// It walks the error chain with errors.Is; CodeUnknown if nothing matches.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	if code, ok := errorCodeMap[err]; ok {
		return code
	}
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknown
}
