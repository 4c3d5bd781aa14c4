// Package contexts detects facts about the host that manifests can refer to.
//
// Each [Provider] contributes one named group of values (for example
// `user.username` or `os.name`). The detected [Contexts] are read-only once
// built and are shared by every manifest in a run.
package contexts

import (
	"context"
	"log/slog"
	"maps"
)

// Values is the set of facts detected by a single [Provider].
type Values map[string]any

// Provider detects one group of facts.
type Provider interface {
	Name() string
	Detect(ctx context.Context) (Values, error)
}

// Contexts holds the values detected by all providers, keyed by provider name.
type Contexts struct {
	values map[string]Values
}

// New creates [Contexts] from already detected values.
func New(values map[string]Values) *Contexts {
	c := &Contexts{values: make(map[string]Values, len(values))}
	for name, v := range values {
		c.values[name] = maps.Clone(v)
	}

	return c
}

// Build runs providers in order. A provider that fails is logged and left
// out, so one missing fact does not prevent a run.
func Build(ctx context.Context, providers ...Provider) *Contexts {
	c := &Contexts{values: make(map[string]Values, len(providers))}

	for _, p := range providers {
		v, err := p.Detect(ctx)
		if err != nil {
			slog.WarnContext(ctx, "context provider failed",
				slog.String("provider", p.Name()),
				slog.Any("err", err),
			)

			continue
		}

		slog.DebugContext(ctx, "detected context",
			slog.String("provider", p.Name()),
			slog.Int("values", len(v)),
		)

		c.values[p.Name()] = v
	}

	return c
}

// Get returns the values detected by the named provider.
func (c *Contexts) Get(name string) (Values, bool) {
	v, ok := c.values[name]

	return v, ok
}

// Names returns the provider names that produced values.
func (c *Contexts) Names() []string {
	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}

	return names
}

// Activation returns the values in the shape expected by expression
// evaluation: one map per provider name.
func (c *Contexts) Activation() map[string]any {
	out := make(map[string]any, len(c.values))
	for name, v := range c.values {
		out[name] = map[string]any(v)
	}

	return out
}

// User returns the invoking user recorded by the user provider.
// The zero [User] is returned when it was not detected.
func (c *Contexts) User() User {
	v, ok := c.values[UserProviderName]
	if !ok {
		return User{}
	}

	return userFromValues(v)
}
