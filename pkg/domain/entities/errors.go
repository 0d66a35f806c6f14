package entities

import (
	"errors"
	"fmt"
)

// ErrorKind classifies planning failures
type ErrorKind string

const (
	KindInsufficientData   ErrorKind = "insufficient_data"
	KindInvariantViolation ErrorKind = "invariant_violation"
	KindOutOfOrderActuals  ErrorKind = "out_of_order_actuals"
	KindPendingApproval    ErrorKind = "pending_approval"
	KindCapacityShortfall  ErrorKind = "capacity_shortfall"
	KindInvalidInput       ErrorKind = "invalid_input"
	KindNotFound           ErrorKind = "not_found"
	KindSeasonBlocked      ErrorKind = "season_blocked"
	KindSeasonClosed       ErrorKind = "season_closed"
	KindInvalidPhase       ErrorKind = "invalid_phase"
)

// Sentinels for errors.Is comparisons; matching is by Kind.
var (
	ErrInsufficientData   = &PlanningError{Kind: KindInsufficientData}
	ErrInvariantViolation = &PlanningError{Kind: KindInvariantViolation}
	ErrOutOfOrderActuals  = &PlanningError{Kind: KindOutOfOrderActuals}
	ErrPendingApproval    = &PlanningError{Kind: KindPendingApproval}
	ErrCapacityShortfall  = &PlanningError{Kind: KindCapacityShortfall}
	ErrInvalidInput       = &PlanningError{Kind: KindInvalidInput}
	ErrNotFound           = &PlanningError{Kind: KindNotFound}
	ErrSeasonBlocked      = &PlanningError{Kind: KindSeasonBlocked}
	ErrSeasonClosed       = &PlanningError{Kind: KindSeasonClosed}
	ErrInvalidPhase       = &PlanningError{Kind: KindInvalidPhase}
)

// PlanningError is a typed error carrying the failure kind and the season it applies to.
// Two PlanningErrors are equal under errors.Is when their kinds match.
type PlanningError struct {
	Kind     ErrorKind
	Message  string
	SeasonID SeasonID
	Cause    error
	Context  map[string]any
}

// Error implements the error interface
func (e *PlanningError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.SeasonID != "" {
		msg = fmt.Sprintf("[%s] season %s: %s", e.Kind, e.SeasonID, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *PlanningError) Unwrap() error {
	return e.Cause
}

// Is matches another PlanningError by kind
func (e *PlanningError) Is(target error) bool {
	var other *PlanningError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// WithContext attaches a key/value pair to the error
func (e *PlanningError) WithContext(key string, value any) *PlanningError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithSeason returns the error tagged with a season id
func (e *PlanningError) WithSeason(id SeasonID) *PlanningError {
	e.SeasonID = id
	return e
}

// NewPlanningError creates a PlanningError with a formatted message
func NewPlanningError(kind ErrorKind, format string, args ...any) *PlanningError {
	return &PlanningError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapPlanningError creates a PlanningError around an existing cause
func WrapPlanningError(kind ErrorKind, cause error, format string, args ...any) *PlanningError {
	return &PlanningError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// KindOf returns the kind of the first PlanningError in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	var pe *PlanningError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
