package doccontext

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a query names a topic that is not registered.
	ErrNotFound = errors.New("topic not found")

	// ErrInvalidState is returned when an operation is called out of order,
	// for example Curate before Register.
	ErrInvalidState = errors.New("invalid compilation state")
)

// StateError reports a rejected state transition.
type StateError struct {
	From, To State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%v: %s -> %s", ErrInvalidState, e.From, e.To)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }
