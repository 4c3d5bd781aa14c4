package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// UserConfigPath returns the path of the configuration file in the user's
// config directory. It checks $XDG_CONFIG_HOME first, then falls back to
// ~/.config.
func UserConfigPath() string {
	if xdgHome, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdgHome != "" {
		return filepath.Join(xdgHome, "comtrya", FileName)
	}

	usrHome, err := os.UserHomeDir()
	if err == nil && usrHome != "" {
		return filepath.Join(usrHome, ".config", "comtrya", FileName)
	}

	slog.Debug("could not determine user config directory", slog.Any("err", err))

	return ""
}

// SearchPaths returns the candidate configuration files in lookup order.
// Empty candidates are omitted.
func SearchPaths(manifestDir string) []string {
	var paths []string

	if manifestDir != "" {
		paths = append(paths, filepath.Join(manifestDir, FileName))
	}

	paths = append(paths, FileName)

	if p := UserConfigPath(); p != "" {
		paths = append(paths, p)
	}

	return paths
}

// Find returns the configuration file to load.
//
// An explicit path must exist. Otherwise the first existing entry of
// [SearchPaths] is returned, or an empty string when there is none.
func Find(explicit, manifestDir string) (string, error) {
	if explicit != "" {
		_, err := os.Stat(explicit)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}

		return explicit, nil
	}

	for _, p := range SearchPaths(manifestDir) {
		info, err := os.Stat(p)
		if err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}

	return "", nil
}

// Load finds and loads the configuration. When no file exists, defaults are
// returned along with an empty path.
func Load(explicit, manifestDir string) (*Config, string, error) {
	path, err := Find(explicit, manifestDir)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		return New(), "", nil
	}

	l, err := NewLoaderFromFile(path, func() *Config { return &Config{} }, DefaultValidator)
	if err != nil {
		return nil, path, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg, err := l.Load()
	if err != nil {
		return nil, path, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return cfg, path, nil
}

// ReadFile reads a regular file.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: path is a directory", path)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: unknown file state", path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: Potential file inclusion via variable.
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// ResolveManifestPaths returns cfg's manifest paths, with relative entries
// resolved against the directory of the configuration file at path.
func (c *Config) ResolveManifestPaths(path string) []string {
	base := "."
	if path != "" {
		base = filepath.Dir(path)
	}

	out := make([]string, 0, len(c.ManifestPaths))
	for _, p := range c.ManifestPaths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		out = append(out, p)
	}

	return out
}
