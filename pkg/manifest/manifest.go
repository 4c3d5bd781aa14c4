package manifest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/macropower/comtrya/pkg/atom"
	"github.com/macropower/comtrya/pkg/atom/command"
	"github.com/macropower/comtrya/pkg/contexts"
	"github.com/macropower/comtrya/pkg/execs"
	"github.com/macropower/comtrya/pkg/expr"
	"github.com/macropower/comtrya/pkg/log"
	"github.com/macropower/comtrya/pkg/yaml"
)

const (
	ActionCommandRun = "command.run"
	ActionCmdRun     = "cmd.run"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidAction = errors.New("invalid action")

	AllActions = []string{ActionCommandRun, ActionCmdRun}

	DefaultValidator = yaml.MustNewValidatorFor("/manifest.json", &Manifest{})

	celEnv = sync.OnceValues(func() (*expr.Environment, error) {
		return expr.NewEnvironment()
	})
)

// Manifest is one manifest file.
type Manifest struct {
	// Where is an optional condition; when false, no action runs.
	Where string `json:"where,omitempty" jsonschema:"title=Where"`
	// Name is the path of the file relative to its manifest directory,
	// without extension.
	Name string `json:"-"`
	// Path is the file the manifest was loaded from.
	Path string `json:"-"`
	// Actions run in order.
	Actions []*Action `json:"actions" jsonschema:"required,title=Actions"`
}

// Action is one entry of a manifest.
type Action struct {
	// Action selects the kind of action.
	Action string `json:"action" jsonschema:"required,title=Action,enum=command.run,enum=cmd.run"`
	// Command is the executable to run.
	Command string `json:"command,omitempty" jsonschema:"title=Command"`
	// Shell is a command line split with shell quoting rules.
	// It is mutually exclusive with Command and Args.
	Shell string `json:"shell,omitempty" jsonschema:"title=Shell"`
	// Dir is the working directory.
	Dir string `json:"dir,omitempty" jsonschema:"title=Directory"`
	// Where is an optional condition; when false, the action is skipped.
	Where string `json:"where,omitempty" jsonschema:"title=Where"`
	// Args are passed to Command.
	Args []string `json:"args,omitempty" jsonschema:"title=Arguments"`
	// Env is merged over the inherited environment, in order.
	Env []execs.EnvVar `json:"env,omitempty" jsonschema:"title=Environment"`
	// Privileged requests elevation.
	Privileged bool `json:"privileged,omitempty" jsonschema:"title=Privileged"`
}

func (m *Manifest) EnsureDefaults() {}

// Validate checks every action and compiles every condition.
func (m *Manifest) Validate() error {
	var errs []error

	err := compile(m.Where)
	if err != nil {
		errs = append(errs, fmt.Errorf("where: %w", err))
	}

	for i, a := range m.Actions {
		err := a.Validate()
		if err != nil {
			errs = append(errs, fmt.Errorf("actions[%d]: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

func (m *Manifest) String() string {
	return m.Name
}

// Validate checks that the action is a known kind with exactly one way of
// naming its command.
func (a *Action) Validate() error {
	if !slices.Contains(AllActions, a.Action) {
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Action)
	}

	switch {
	case a.Shell != "" && (a.Command != "" || len(a.Args) > 0):
		return fmt.Errorf("%w: shell cannot be combined with command or args", ErrInvalidAction)
	case a.Shell == "" && a.Command == "":
		return fmt.Errorf("%w: %w", ErrInvalidAction, execs.ErrEmptyCommand)
	}

	_, _, err := a.CommandLine()
	if err != nil {
		return err
	}

	err = compile(a.Where)
	if err != nil {
		return fmt.Errorf("where: %w", err)
	}

	return nil
}

// CommandLine returns the command and arguments of the action, splitting
// Shell when it is set.
func (a *Action) CommandLine() (string, []string, error) {
	if a.Shell == "" {
		return a.Command, a.Args, nil
	}

	words, err := shellwords.Parse(a.Shell)
	if err != nil {
		return "", nil, fmt.Errorf("%w: parse shell %q: %w", ErrInvalidAction, a.Shell, err)
	}
	if len(words) == 0 {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidAction, execs.ErrEmptyCommand)
	}

	return words[0], words[1:], nil
}

// Atoms returns the atoms for the actions of m whose conditions hold in c.
// The given options are applied to every atom after the action's own fields.
func (m *Manifest) Atoms(ctx context.Context, c *contexts.Contexts, opts ...command.ExecOpt) ([]atom.Atom, error) {
	logger := log.WithContext(ctx).With(slog.String("manifest", m.Name))
	activation := c.Activation()

	ok, err := holds(m.Where, activation)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", m.Name, err)
	}
	if !ok {
		logger.DebugContext(ctx, "manifest skipped", slog.String("where", m.Where))

		return nil, nil
	}

	atoms := make([]atom.Atom, 0, len(m.Actions))

	for i, a := range m.Actions {
		ok, err := holds(a.Where, activation)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: actions[%d]: %w", m.Name, i, err)
		}
		if !ok {
			logger.DebugContext(ctx, "action skipped",
				slog.Int("index", i),
				slog.String("where", a.Where),
			)

			continue
		}

		cmd, args, err := a.CommandLine()
		if err != nil {
			return nil, fmt.Errorf("manifest %s: actions[%d]: %w", m.Name, i, err)
		}

		execOpts := []command.ExecOpt{
			command.WithArguments(args...),
			command.WithWorkingDir(a.Dir),
			command.WithEnvironment(a.Env),
			command.WithPrivileged(a.Privileged),
		}
		if _, detected := c.Get(contexts.UserProviderName); detected {
			execOpts = append(execOpts, command.WithUser(c.User()))
		}

		atoms = append(atoms, command.NewExec(cmd, append(execOpts, opts...)...))
	}

	return atoms, nil
}

func condition(where string) (*expr.Condition, error) {
	env, err := celEnv()
	if err != nil {
		return nil, err
	}

	return expr.NewCondition(env, where)
}

func compile(where string) error {
	if where == "" {
		return nil
	}

	_, err := condition(where)

	return err
}

func holds(where string, activation map[string]any) (bool, error) {
	if where == "" {
		return true, nil
	}

	cond, err := condition(where)
	if err != nil {
		return false, err
	}

	return cond.Eval(activation)
}
