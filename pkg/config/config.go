package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/macropower/comtrya/pkg/elevate"
	"github.com/macropower/comtrya/pkg/execs"
	"github.com/macropower/comtrya/pkg/yaml"
)

// FileName is the name of the configuration file.
const FileName = "Comtrya.yaml"

var (
	// ErrInvalidConfig is returned for any configuration that cannot be
	// found, read, parsed, or validated.
	ErrInvalidConfig = errors.New("invalid configuration")

	DefaultValidator = yaml.MustNewValidatorFor("/comtrya.json", &Config{})
)

// Config is the contents of Comtrya.yaml.
type Config struct {
	// Variables are exposed to `where` conditions as `variables`.
	Variables map[string]string `json:"variables,omitempty" jsonschema:"title=Variables"`
	// Elevation configures privilege elevation.
	Elevation *ElevationConfig `json:"elevation,omitempty" jsonschema:"title=Elevation"`
	// Output configures how command output is decoded.
	Output *OutputConfig `json:"output,omitempty" jsonschema:"title=Output"`
	// ManifestPaths are searched for manifests when no manifest directory
	// is given on the command line. Relative paths are resolved against
	// the directory containing the configuration file.
	ManifestPaths []string `json:"manifest_paths,omitempty" jsonschema:"title=Manifest Paths"`
	// DisableUpdateCheck skips the check for a newer release.
	DisableUpdateCheck bool `json:"disable_update_check,omitempty" jsonschema:"title=Disable Update Check"`
}

type ElevationConfig struct {
	// Timeout bounds how long credential validation may take.
	Timeout string `json:"timeout,omitempty" jsonschema:"title=Timeout,example=5m"`
}

type OutputConfig struct {
	// Decoding is the policy used to turn command output into text.
	Decoding string `json:"decoding,omitempty" jsonschema:"title=Decoding,enum=lossy,enum=strict"`
}

// New returns a [Config] with defaults applied.
func New() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

func (c *Config) EnsureDefaults() {
	if c.Variables == nil {
		c.Variables = map[string]string{}
	}
	if c.Elevation == nil {
		c.Elevation = &ElevationConfig{}
	}
	if c.Elevation.Timeout == "" {
		c.Elevation.Timeout = elevate.DefaultTimeout.String()
	}
	if c.Output == nil {
		c.Output = &OutputConfig{}
	}
	if c.Output.Decoding == "" {
		c.Output.Decoding = string(execs.DecodeLossy)
	}
}

// Validate checks values the schema cannot express.
func (c *Config) Validate() error {
	_, err := c.ElevationTimeout()
	if err != nil {
		return err
	}

	_, err = c.DecodePolicy()
	if err != nil {
		return err
	}

	return nil
}

// ElevationTimeout returns the parsed elevation timeout.
func (c *Config) ElevationTimeout() (time.Duration, error) {
	if c.Elevation == nil || c.Elevation.Timeout == "" {
		return elevate.DefaultTimeout, nil
	}

	d, err := time.ParseDuration(c.Elevation.Timeout)
	if err != nil {
		return 0, fmt.Errorf("elevation.timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("elevation.timeout: must be positive, got %s", c.Elevation.Timeout)
	}

	return d, nil
}

// DecodePolicy returns the configured output decoding policy.
func (c *Config) DecodePolicy() (execs.DecodePolicy, error) {
	if c.Output == nil {
		return execs.DecodeLossy, nil
	}

	p, err := execs.GetDecodePolicy(c.Output.Decoding)
	if err != nil {
		return "", fmt.Errorf("output.decoding: %w", err)
	}

	return p, nil
}
