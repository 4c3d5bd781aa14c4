package execs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyCommand is returned when a command is empty.
	ErrEmptyCommand = errors.New("empty command")
)

// EnvVar represents an environment variable definition.
type EnvVar struct {
	// Name is the environment variable name.
	Name string `json:"name" jsonschema:"title=Name,required"`
	// Value is the environment variable value.
	Value string `json:"value,omitempty" jsonschema:"title=Value"`
}

func (e EnvVar) String() string {
	return e.Name + "=" + e.Value
}

// Command describes a single process invocation.
type Command struct {
	// Command is the executable name or path.
	Command string
	// Dir is the working directory. Empty means the caller's current directory.
	Dir string
	// Args contains the command line arguments.
	Args []string
	// Env is applied on top of the base environment, in order.
	Env []EnvVar
}

// Environ merges env over base (in [os.Environ] form).
// Later entries replace earlier ones with the same name, so the last write wins.
// The order of first appearance is preserved.
func Environ(base []string, env []EnvVar) []string {
	values := make(map[string]string, len(base)+len(env))
	order := make([]string, 0, len(base)+len(env))

	set := func(key, value string) {
		if _, ok := values[key]; !ok {
			order = append(order, key)
		}

		values[key] = value
	}

	for _, kv := range base {
		if eqIdx := strings.Index(kv, "="); eqIdx != -1 {
			set(kv[:eqIdx], kv[eqIdx+1:])
		}
	}

	for _, envVar := range env {
		if envVar.Name == "" {
			continue
		}

		set(envVar.Name, envVar.Value)
	}

	out := make([]string, 0, len(order))
	for _, key := range order {
		out = append(out, key+"="+values[key])
	}

	return out
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Command
	}

	return fmt.Sprintf("%s %s", c.Command, strings.Join(c.Args, " "))
}
