package bos

import (
	"errors"
	"fmt"
)

var (
	// ErrConsistency marks a disagreement between the target environment's
	// data and the provisioning assumptions.
	ErrConsistency = errors.New("consistency error")

	// ErrNotFound is returned when a lookup expected to match exactly one
	// record matched none.
	ErrNotFound = fmt.Errorf("%w: no matching record", ErrConsistency)

	// ErrAmbiguous is returned when a lookup expected to match exactly one
	// record matched several.
	ErrAmbiguous = fmt.Errorf("%w: lookup is ambiguous", ErrConsistency)

	// ErrTransition is returned when a workflow action is applied to a
	// document that is not in a state from which it is legal.
	ErrTransition = errors.New("transition precondition failed")
)

// LookupError describes a failed single-result assertion.
type LookupError struct {
	Model   string
	Domain  Domain
	Matches int
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %s matched %d records, expected exactly one", e.Model, e.Domain, e.Matches)
}

// Unwrap classifies the error as ErrNotFound or ErrAmbiguous.
func (e *LookupError) Unwrap() error {
	if e.Matches == 0 {
		return ErrNotFound
	}
	return ErrAmbiguous
}

// TransitionError describes a rejected workflow action.
type TransitionError struct {
	Model      string
	Transition string
	ID         ID
	State      string
}

func (e *TransitionError) Error() string {
	if e.State == "" {
		return fmt.Sprintf("%s: %s(%d) rejected", ErrTransition, e.Model+"."+e.Transition, e.ID)
	}
	return fmt.Sprintf("%s: %s(%d) not allowed from state %q", ErrTransition, e.Model+"."+e.Transition, e.ID, e.State)
}

func (e *TransitionError) Unwrap() error {
	return ErrTransition
}

// RemoteError is a failure reported by, or while talking to, the service.
type RemoteError struct {
	Method  string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote %s: %s: %v", e.Method, e.Message, e.Err)
	}
	return fmt.Sprintf("remote %s: %s", e.Method, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
