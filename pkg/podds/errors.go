package podds

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// InsufficientHistoryError reports a team with fewer prior matches than the
// requested window. Prepare recovers from it by using whatever history exists
// and flagging the form as reduced confidence.
type InsufficientHistoryError struct {
	Team   string
	Before time.Time
	Want   int
	Have   int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %s before %s: want %d matches, have %d",
		e.Team, e.Before.Format("2006-01-02"), e.Want, e.Have)
}

// InvalidParameterError is returned before any work starts
type InvalidParameterError struct {
	Name   string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Name, e.Value, e.Reason)
}

// ModelInferenceError wraps a failure (or a nonsensical output) from a goals
// or winner model for one fixture. The orchestrator turns it into a flagged row.
type ModelInferenceError struct {
	Model   string
	Fixture string
	Err     error
}

func (e *ModelInferenceError) Error() string {
	return fmt.Sprintf("%s model failed for %s: %v", e.Model, e.Fixture, e.Err)
}

func (e *ModelInferenceError) Unwrap() error {
	return e.Err
}

// ModelUnavailableError means a required model was never supplied or could not be loaded
type ModelUnavailableError struct {
	Model string
	Err   error
}

func (e *ModelUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s model unavailable: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("%s model unavailable", e.Model)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Err
}

// MalformedFixtureError marks a fixture that cannot be featurised at all,
// for example one with a missing team name
type MalformedFixtureError struct {
	Fixture string
	Reason  string
}

func (e *MalformedFixtureError) Error() string {
	return fmt.Sprintf("malformed fixture %s: %s", e.Fixture, e.Reason)
}

func invalidParam(name string, value any, format string, args ...any) error {
	return &InvalidParameterError{Name: name, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// ErrorKind is a short label for the error's type, used as a metrics label
func ErrorKind(err error) string {
	var (
		ih *InsufficientHistoryError
		ip *InvalidParameterError
		mi *ModelInferenceError
		mu *ModelUnavailableError
		mf *MalformedFixtureError
	)
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &mf):
		return "malformed_fixture"
	case errors.As(err, &ih):
		return "insufficient_history"
	case errors.As(err, &ip):
		return "invalid_parameter"
	case errors.As(err, &mi):
		return "model_inference"
	case errors.As(err, &mu):
		return "model_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "other"
}
