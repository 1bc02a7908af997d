package world

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates a run configuration outside its valid range.
	ErrInvalidConfig = errors.New("world: invalid run config")

	// ErrInvalidState indicates a body whose pose or velocity is NaN or Inf.
	ErrInvalidState = errors.New("world: invalid body state (NaN or Inf detected)")
)

// RunError wraps a failure with the step at which it happened.
type RunError struct {
	Step    int
	Time    float64
	Body    string
	Wrapped error
}

func (e *RunError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("step %d (t=%.4f), body %q: %v", e.Step, e.Time, e.Body, e.Wrapped)
	}
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *RunError) Unwrap() error {
	return e.Wrapped
}
