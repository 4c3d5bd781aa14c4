// Package atom defines the contract shared by every independently planned and
// executed unit of system change.
//
// An orchestrator calls [Atom.Plan] to decide whether to call
// [Atom.Execute]. Execute must still be safe to call without a prior Plan.
package atom

import (
	"context"
	"fmt"
)

// Atom is a single unit of system change.
type Atom interface {
	fmt.Stringer

	// Plan reports whether Execute should run. It has no side effects.
	Plan() bool
	// Execute performs the change.
	Execute(ctx context.Context) error
	// Output returns the most recently captured standard output.
	Output() string
	// ErrorMessage returns the most recently captured standard error.
	ErrorMessage() string
	// Status returns the result of the most recent Execute.
	Status() Status
}

// State distinguishes an atom that never ran from one that ran.
type State int

const (
	StateNotRun State = iota
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotRun:
		return "not run"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Status is the outcome recorded by the most recent Execute.
// The zero value is [StateNotRun].
type Status struct {
	Stdout string
	Stderr string
	State  State
	Code   int
}

// Ran reports whether the status was recorded by an execution.
func (s Status) Ran() bool {
	return s.State != StateNotRun
}
