package quickstep

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameters indicates solver parameters outside their valid range.
	ErrInvalidParameters = errors.New("quickstep: invalid parameters")

	// ErrContract indicates a joint or body that breaks the stepper's input
	// contract. It is raised with panic, not returned.
	ErrContract = errors.New("quickstep: constraint contract violation")
)

func contractf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrContract, fmt.Sprintf(format, args...))
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameters, fmt.Sprintf(format, args...))
}
