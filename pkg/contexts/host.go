package contexts

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
)

const (
	OSProviderName        = "os"
	EnvProviderName       = "env"
	VariablesProviderName = "variables"
)

// OSProvider detects the operating system and host name.
type OSProvider struct{}

func (OSProvider) Name() string {
	return OSProviderName
}

func (OSProvider) Detect(_ context.Context) (Values, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	family := "unix"
	if runtime.GOOS == "windows" {
		family = "windows"
	}

	return Values{
		"name":     runtime.GOOS,
		"arch":     runtime.GOARCH,
		"family":   family,
		"hostname": hostname,
	}, nil
}

// EnvProvider exposes the process environment.
type EnvProvider struct {
	environ func() []string
}

func NewEnvProvider() *EnvProvider {
	return &EnvProvider{environ: os.Environ}
}

func (*EnvProvider) Name() string {
	return EnvProviderName
}

func (p *EnvProvider) Detect(_ context.Context) (Values, error) {
	env := p.environ()

	v := make(Values, len(env))
	for _, kv := range env {
		if key, value, ok := strings.Cut(kv, "="); ok {
			v[key] = value
		}
	}

	return v, nil
}

// VariablesProvider exposes user-defined variables from configuration.
type VariablesProvider struct {
	vars map[string]string
}

func NewVariablesProvider(vars map[string]string) *VariablesProvider {
	return &VariablesProvider{vars: vars}
}

func (*VariablesProvider) Name() string {
	return VariablesProviderName
}

func (p *VariablesProvider) Detect(_ context.Context) (Values, error) {
	v := make(Values, len(p.vars))
	for key, value := range p.vars {
		v[key] = value
	}

	return v, nil
}

// DefaultProviders returns the providers used by the CLI.
func DefaultProviders(vars map[string]string) []Provider {
	return []Provider{
		NewUserProvider(),
		OSProvider{},
		NewEnvProvider(),
		NewVariablesProvider(vars),
	}
}
