package elevate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/term"

	"github.com/macropower/comtrya/pkg/execs"
)

// DefaultTimeout bounds how long validation may wait for credentials.
const DefaultTimeout = 5 * time.Minute

// Validator checks that elevation can be obtained.
type Validator interface {
	Validate(ctx context.Context) error
}

// Attacher runs a command connected to the given streams.
type Attacher interface {
	Attach(ctx context.Context, cmd execs.Command, stdio execs.Stdio) (int, error)
}

// SudoOpt configures a [SudoValidator].
type SudoOpt func(*SudoValidator)

// WithAttacher sets the runner used to invoke sudo.
func WithAttacher(a Attacher) SudoOpt {
	return func(v *SudoValidator) {
		v.attacher = a
	}
}

// WithStdio sets the streams sudo is connected to.
func WithStdio(stdio execs.Stdio) SudoOpt {
	return func(v *SudoValidator) {
		v.stdio = stdio
	}
}

// WithTimeout bounds validation. Zero disables the bound.
func WithTimeout(d time.Duration) SudoOpt {
	return func(v *SudoValidator) {
		v.timeout = d
	}
}

// SudoValidator runs `sudo --validate` with its streams attached to the
// terminal, so that a password prompt is visible to the user.
type SudoValidator struct {
	attacher Attacher
	stdio    execs.Stdio
	timeout  time.Duration
}

func NewSudoValidator(opts ...SudoOpt) *SudoValidator {
	v := &SudoValidator{
		attacher: execs.NewExecutor(),
		stdio:    execs.TerminalStdio(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Validate succeeds when sudo reports that credentials are cached or were
// just supplied. If stdin is not a terminal, sudo is told not to prompt.
func (v *SudoValidator) Validate(ctx context.Context) error {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	cmd := execs.Command{Command: Tool, Args: v.args()}

	slog.DebugContext(ctx, "validating elevation", slog.String("command", cmd.String()))

	code, err := v.attacher.Attach(ctx, cmd, v.stdio)
	if err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}

	if code != 0 {
		return fmt.Errorf("%s: exit code %d", cmd, code)
	}

	return nil
}

func (v *SudoValidator) args() []string {
	if isTerminal(v.stdio.Stdin) {
		return []string{"--validate"}
	}

	return []string{"--validate", "--non-interactive"}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(interface{ Fd() uintptr })
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: file descriptors fit in int.
}
