// Package command provides atoms that run shell commands.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/macropower/comtrya/pkg/atom"
	"github.com/macropower/comtrya/pkg/contexts"
	"github.com/macropower/comtrya/pkg/elevate"
	"github.com/macropower/comtrya/pkg/execs"
	"github.com/macropower/comtrya/pkg/log"
)

// Runner spawns a process and captures its output.
type Runner interface {
	Exec(ctx context.Context, cmd execs.Command) (*execs.Result, error)
}

var _ atom.Atom = (*Exec)(nil)

// Exec is an atom that runs one command, elevating it through sudo when it
// is privileged and the invoking user is not the superuser.
//
// The zero value runs nothing useful but is valid.
type Exec struct {
	runner    Runner
	validator elevate.Validator
	user      *contexts.User
	status    atom.Status

	// Command is the executable name or path.
	Command string
	// WorkingDir is where the command runs. Empty means the current directory.
	WorkingDir string
	// Decoding selects how captured output is turned into text.
	Decoding execs.DecodePolicy
	// Arguments are passed to Command positionally.
	Arguments []string
	// Environment is merged over the inherited environment, in order.
	Environment []execs.EnvVar
	// Privileged requests elevation.
	Privileged bool
}

// ExecOpt configures an [Exec].
type ExecOpt func(*Exec)

func WithArguments(args ...string) ExecOpt {
	return func(e *Exec) {
		e.Arguments = args
	}
}

func WithWorkingDir(dir string) ExecOpt {
	return func(e *Exec) {
		e.WorkingDir = dir
	}
}

// WithEnv appends one environment variable.
func WithEnv(name, value string) ExecOpt {
	return func(e *Exec) {
		e.Environment = append(e.Environment, execs.EnvVar{Name: name, Value: value})
	}
}

func WithEnvironment(env []execs.EnvVar) ExecOpt {
	return func(e *Exec) {
		e.Environment = append(e.Environment, env...)
	}
}

func WithPrivileged(privileged bool) ExecOpt {
	return func(e *Exec) {
		e.Privileged = privileged
	}
}

func WithDecoding(policy execs.DecodePolicy) ExecOpt {
	return func(e *Exec) {
		e.Decoding = policy
	}
}

// WithUser sets the invoking user used for elevation decisions.
// Without it, the user is looked up when the atom executes.
func WithUser(u contexts.User) ExecOpt {
	return func(e *Exec) {
		e.user = &u
	}
}

func WithRunner(r Runner) ExecOpt {
	return func(e *Exec) {
		e.runner = r
	}
}

func WithValidator(v elevate.Validator) ExecOpt {
	return func(e *Exec) {
		e.validator = v
	}
}

// NewExec creates an [Exec] for command.
func NewExec(command string, opts ...ExecOpt) *Exec {
	e := &Exec{Command: command}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Plan always returns true: commands carry no pre-check, so every run
// executes them.
func (e *Exec) Plan() bool {
	return true
}

// Execute runs the command and records its [atom.Status].
//
// When elevation is required it is validated first; if that fails an
// [*elevate.Error] is returned and the command is never spawned. If the
// process cannot be created an [*execs.SpawnError] is returned. In both cases
// the previous status is kept.
func (e *Exec) Execute(ctx context.Context) error {
	logger := log.WithContext(ctx)

	command, args := elevate.Elevate(e.Command, e.Arguments, e.Privileged, e.invokingUser(ctx))

	if elevate.Required(command) {
		logger.InfoContext(ctx, "elevation required, validating sudo",
			slog.String("command", e.commandLine()),
		)

		err := e.getValidator().Validate(ctx)
		if err != nil {
			return &elevate.Error{Command: e.commandLine(), Err: err}
		}
	}

	res, err := e.getRunner().Exec(ctx, execs.Command{
		Command: command,
		Args:    args,
		Dir:     e.WorkingDir,
		Env:     e.Environment,
	})
	if err != nil {
		return fmt.Errorf("run %q: %w", e.commandLine(), err)
	}

	status, err := e.decodeStatus(res)
	e.status = status

	logger.Log(ctx, log.SlogLevelTrace, "command finished",
		slog.Int("code", status.Code),
		slog.String("stdout", status.Stdout),
		slog.String("stderr", status.Stderr),
	)

	return err
}

func (e *Exec) decodeStatus(res *execs.Result) (atom.Status, error) {
	status := atom.Status{
		Code:  res.ExitCode,
		State: atom.StateSucceeded,
	}

	stdout, stdoutErr := execs.Decode("stdout", res.Stdout, e.Decoding)
	stderr, stderrErr := execs.Decode("stderr", res.Stderr, e.Decoding)

	err := errors.Join(stdoutErr, stderrErr)
	if err != nil {
		// Keep a readable rendering of the output for diagnostics.
		stdout, _ = execs.Decode("stdout", res.Stdout, execs.DecodeLossy) //nolint:errcheck // Lossy never fails.
		stderr, _ = execs.Decode("stderr", res.Stderr, execs.DecodeLossy) //nolint:errcheck // Lossy never fails.
		status.State = atom.StateFailed
	}

	if res.ExitCode != 0 {
		status.State = atom.StateFailed
	}

	status.Stdout = stdout
	status.Stderr = stderr

	return status, err
}

// Output returns the standard output captured by the most recent Execute.
func (e *Exec) Output() string {
	return e.status.Stdout
}

// ErrorMessage returns the standard error captured by the most recent Execute.
func (e *Exec) ErrorMessage() string {
	return e.status.Stderr
}

func (e *Exec) Status() atom.Status {
	return e.status
}

func (e *Exec) String() string {
	return fmt.Sprintf("RunCommand with privileged %t: %s", e.Privileged, e.commandLine())
}

func (e *Exec) commandLine() string {
	return strings.TrimSpace(e.Command + " " + strings.Join(e.Arguments, " "))
}

func (e *Exec) invokingUser(ctx context.Context) contexts.User {
	if e.user != nil {
		return *e.user
	}

	u, err := contexts.CurrentUser()
	if err != nil {
		log.WithContext(ctx).WarnContext(ctx, "could not determine invoking user, assuming unprivileged",
			slog.Any("err", err),
		)
	}

	return u
}

func (e *Exec) getRunner() Runner {
	if e.runner == nil {
		return execs.NewExecutor()
	}

	return e.runner
}

func (e *Exec) getValidator() elevate.Validator {
	if e.validator == nil {
		return elevate.NewSudoValidator()
	}

	return e.validator
}
