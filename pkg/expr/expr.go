package expr

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Variables available to every expression.
var Variables = []string{"user", "os", "env", "variables"}

// ErrNotBool is returned when a condition does not evaluate to a boolean.
var ErrNotBool = errors.New("expression did not return a boolean")

// Protect CEL environment creation and compilation from concurrent access.
var celMutex sync.Mutex

// Environment provides a thread-safe wrapper around a [*cel.Env].
type Environment struct {
	env *cel.Env
}

// NewEnvironment creates a new [Environment] declaring [Variables].
func NewEnvironment(opts ...cel.EnvOption) (*Environment, error) {
	env, err := createEnvironment(opts...)
	if err != nil {
		return nil, err
	}

	return &Environment{env: env}, nil
}

// MustNewEnvironment creates a new [Environment] and panics on error.
func MustNewEnvironment(opts ...cel.EnvOption) *Environment {
	env, err := NewEnvironment(opts...)
	if err != nil {
		panic(err)
	}

	return env
}

func createEnvironment(opts ...cel.EnvOption) (*cel.Env, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	for _, name := range Variables {
		opts = append(opts, cel.Variable(name, cel.MapType(cel.StringType, cel.DynType)))
	}

	opts = append(opts, cel.Lib(&lib{}))

	celEnv, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return celEnv, nil
}

// Compile compiles a CEL expression and returns a program.
//
//nolint:ireturn // Following CEL's function signature.
func (e *Environment) Compile(expression string) (cel.Program, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile expression: %w", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}

	return program, nil
}

// Condition is a compiled boolean expression.
type Condition struct {
	program    cel.Program
	expression string
}

// NewCondition compiles expression in env.
func NewCondition(env *Environment, expression string) (*Condition, error) {
	program, err := env.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", expression, err)
	}

	return &Condition{program: program, expression: expression}, nil
}

// Eval evaluates the condition with the given activation, which maps each
// name in [Variables] to its values. Missing variables evaluate as empty maps.
func (c *Condition) Eval(activation map[string]any) (bool, error) {
	vars := make(map[string]any, len(Variables))
	for _, name := range Variables {
		vars[name] = map[string]any{}
	}
	for name, v := range activation {
		vars[name] = v
	}

	result, _, err := c.program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", c.expression, err)
	}

	b, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("evaluate %q: %w, got %s", c.expression, ErrNotBool, result.Type())
	}

	return b, nil
}

func (c *Condition) String() string {
	return c.expression
}
