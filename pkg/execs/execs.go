package execs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/comtrya/pkg/log"
)

// Result represents the result of a command execution.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
	ExitCode int
}

// Success reports whether the process exited with code 0.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Stdio holds the streams handed to an attached process.
type Stdio struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// TerminalStdio returns the streams of the current process.
func TerminalStdio() Stdio {
	return Stdio{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// ExecutorOpt configures an [Executor].
type ExecutorOpt func(*Executor)

// WithBaseEnv replaces the environment commands inherit.
// By default it is read from [os.Environ] on every execution.
func WithBaseEnv(env []string) ExecutorOpt {
	return func(e *Executor) {
		e.baseEnv = env
	}
}

// Executor spawns processes and waits for them to exit.
type Executor struct {
	tracer  trace.Tracer
	baseEnv []string
}

func NewExecutor(opts ...ExecutorOpt) *Executor {
	e := &Executor{
		tracer: otel.Tracer("executor"),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Exec runs cmd with both output streams captured in memory.
//
// A non-zero exit code is not an error; it is reported in the [Result].
// If the process cannot be created, a [*SpawnError] is returned.
func (e *Executor) Exec(ctx context.Context, cmd Command) (*Result, error) {
	var stdout, stderr bytes.Buffer

	code, duration, err := e.run(ctx, cmd, Stdio{
		Stdout: &stdout,
		Stderr: &stderr,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		ExitCode: code,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: duration,
	}, nil
}

// Attach runs cmd connected to the given streams and returns its exit code.
func (e *Executor) Attach(ctx context.Context, cmd Command, stdio Stdio) (int, error) {
	code, _, err := e.run(ctx, cmd, stdio)

	return code, err
}

func (e *Executor) run(ctx context.Context, cmd Command, stdio Stdio) (int, time.Duration, error) {
	ctx, span := e.tracer.Start(ctx, "exec", trace.WithAttributes(
		attribute.String("command", cmd.String()),
		attribute.String("path", cmd.Dir),
	))
	defer span.End()

	if cmd.Command == "" {
		return 0, 0, &SpawnError{Err: ErrEmptyCommand}
	}

	dir := cmd.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return 0, 0, &SpawnError{Command: cmd.Command, Err: fmt.Errorf("resolve working directory: %w", err)}
		}

		dir = wd
	}

	logger := log.WithContext(ctx).With(
		slog.String("command", cmd.String()),
		slog.String("path", dir),
	)

	baseEnv := e.baseEnv
	if baseEnv == nil {
		baseEnv = os.Environ()
	}

	//nolint:gosec // G204: Subprocess launched with a potential tainted input or cmd arguments.
	c := exec.CommandContext(ctx, cmd.Command, cmd.Args...)
	c.Dir = dir
	c.Env = Environ(baseEnv, cmd.Env)
	c.Stdin = stdio.Stdin
	c.Stdout = stdio.Stdout
	c.Stderr = stdio.Stderr

	start := time.Now()
	err := c.Run()
	duration := time.Since(start)

	if err == nil {
		logger.DebugContext(ctx, "command exited",
			slog.Int("code", 0),
			slog.Duration("duration", duration),
		)

		return 0, duration, nil
	}

	if ctx.Err() != nil {
		span.SetStatus(codes.Error, "canceled")

		return 0, duration, fmt.Errorf("%s: %w", cmd.Command, context.Cause(ctx))
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		span.SetAttributes(attribute.Int("exit_code", code))

		logger.DebugContext(ctx, "command exited",
			slog.Int("code", code),
			slog.Duration("duration", duration),
		)

		return code, duration, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "spawn failed")

	logger.DebugContext(ctx, "command failed to start", slog.Any("err", err))

	return 0, duration, &SpawnError{Command: cmd.Command, Dir: cmd.Dir, Err: err}
}
