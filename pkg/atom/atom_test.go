package atom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/macropower/comtrya/pkg/atom"
)

func TestStatus_Zero(t *testing.T) {
	t.Parallel()

	var s atom.Status

	assert.Equal(t, atom.StateNotRun, s.State)
	assert.False(t, s.Ran())
	assert.Equal(t, "not run", s.State.String())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		state atom.State
		want  string
	}{
		"not run":   {state: atom.StateNotRun, want: "not run"},
		"succeeded": {state: atom.StateSucceeded, want: "succeeded"},
		"failed":    {state: atom.StateFailed, want: "failed"},
		"unknown":   {state: atom.State(7), want: "State(7)"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.state.String())
		})
	}
}
