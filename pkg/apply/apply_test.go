package apply_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/comtrya/pkg/apply"
	"github.com/macropower/comtrya/pkg/atom"
)

type fakeAtom struct {
	err      error
	name     string
	status   atom.Status
	result   atom.Status
	executed *[]string
	skip     bool
}

func (f *fakeAtom) String() string { return f.name }

func (f *fakeAtom) Plan() bool { return !f.skip }

func (f *fakeAtom) Execute(context.Context) error {
	*f.executed = append(*f.executed, f.name)
	if f.err != nil {
		return f.err
	}

	f.status = f.result

	return nil
}

func (f *fakeAtom) Output() string { return f.status.Stdout }

func (f *fakeAtom) ErrorMessage() string { return f.status.Stderr }

func (f *fakeAtom) Status() atom.Status { return f.status }

var (
	succeeded = atom.Status{State: atom.StateSucceeded}
	failed    = atom.Status{State: atom.StateFailed, Code: 2, Stderr: "boom"}
	errRun    = errors.New("spawn failed")
)

func TestOrchestrator_Run(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		atoms        []*fakeAtom
		wantErr      error
		wantExecuted []string
		wantReport   apply.Report
		dryRun       bool
	}{
		"all succeed": {
			atoms:        []*fakeAtom{{name: "a", result: succeeded}, {name: "b", result: succeeded}},
			wantExecuted: []string{"a", "b"},
			wantReport:   apply.Report{Executed: 2},
		},
		"plan false skips": {
			atoms:        []*fakeAtom{{name: "a", skip: true}, {name: "b", result: succeeded}},
			wantExecuted: []string{"b"},
			wantReport:   apply.Report{Executed: 1, Skipped: 1},
		},
		"non-zero exit stops the run": {
			atoms:        []*fakeAtom{{name: "a", result: failed}, {name: "b", result: succeeded}},
			wantExecuted: []string{"a"},
			wantReport:   apply.Report{Executed: 1, Failed: 1},
			wantErr:      apply.ErrAtomFailed,
		},
		"execute error stops the run": {
			atoms:        []*fakeAtom{{name: "a", result: succeeded}, {name: "b", err: errRun}, {name: "c", result: succeeded}},
			wantExecuted: []string{"a", "b"},
			wantReport:   apply.Report{Executed: 2, Failed: 1},
			wantErr:      errRun,
		},
		"dry run executes nothing": {
			atoms:      []*fakeAtom{{name: "a", result: failed}, {name: "b", skip: true}},
			dryRun:     true,
			wantReport: apply.Report{Skipped: 2},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var executed []string

			atoms := make([]atom.Atom, 0, len(tc.atoms))
			for _, a := range tc.atoms {
				a.executed = &executed
				atoms = append(atoms, a)
			}

			o := apply.NewOrchestrator(apply.WithDryRun(tc.dryRun))

			report, err := o.Run(context.Background(), apply.Step{Name: "test", Atoms: atoms})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				var atomErr *apply.AtomError
				require.ErrorAs(t, err, &atomErr)
				assert.Equal(t, tc.wantExecuted[len(tc.wantExecuted)-1], atomErr.Atom)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tc.wantExecuted, executed)

			report.Duration = 0
			assert.Equal(t, tc.wantReport, report)
		})
	}
}

func TestOrchestrator_RunSteps(t *testing.T) {
	t.Parallel()

	var executed []string

	steps := []apply.Step{
		{Name: "first", Atoms: []atom.Atom{&fakeAtom{name: "a", result: succeeded, executed: &executed}}},
		{Name: "empty"},
		{Name: "second", Atoms: []atom.Atom{&fakeAtom{name: "b", result: succeeded, executed: &executed}}},
	}

	report, err := apply.NewOrchestrator().Run(context.Background(), steps...)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, executed)
	assert.Equal(t, 2, report.Executed)
}

func TestOrchestrator_RunCanceled(t *testing.T) {
	t.Parallel()

	var executed []string

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := apply.NewOrchestrator().Run(ctx, apply.Step{
		Atoms: []atom.Atom{&fakeAtom{name: "a", result: succeeded, executed: &executed}},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, executed)
}

func TestAtomError_Error(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err  *apply.AtomError
		want string
	}{
		"non-zero exit": {
			err:  &apply.AtomError{Atom: "RunCommand with privileged false: false", Err: apply.ErrAtomFailed, Code: 1},
			want: "RunCommand with privileged false: false: exited with code 1",
		},
		"execution error": {
			err:  &apply.AtomError{Atom: "x", Err: errRun},
			want: "x: spawn failed",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestReport_String(t *testing.T) {
	t.Parallel()

	s := apply.Report{Executed: 3, Skipped: 1, Failed: 1}.String()

	assert.True(t, strings.HasPrefix(s, "3 executed, 1 skipped, 1 failed in "))
}
