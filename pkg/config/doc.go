// Package config loads the comtrya configuration file, Comtrya.yaml.
//
// Files are decoded with [github.com/macropower/comtrya/pkg/yaml] and
// validated against a JSON schema reflected from [Config]. Any failure is
// reported as [ErrInvalidConfig].
package config
