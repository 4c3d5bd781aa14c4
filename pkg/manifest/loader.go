package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/macropower/comtrya/pkg/config"
)

var ErrManifestNotFound = errors.New("manifest not found")

// Load reads the manifest at path and names it name.
func Load(path, name string) (*Manifest, error) {
	l, err := config.NewLoaderFromFile(path, func() *Manifest { return &Manifest{} }, DefaultValidator)
	if err != nil {
		return nil, fmt.Errorf("load manifest %s: %w", name, err)
	}

	m, err := l.Load()
	if err != nil {
		return nil, fmt.Errorf("load manifest %s: %w", name, err)
	}

	m.Name = name
	m.Path = path

	return m, nil
}

// Discover returns the manifest files below root, keyed by manifest name.
// Configuration files are not manifests.
func Discover(root string) (map[string]string, error) {
	found := map[string]string{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}

			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if d.Name() == config.FileName {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path: %w", err)
		}

		found[filepath.ToSlash(strings.TrimSuffix(rel, ext))] = path

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover manifests in %s: %w", root, err)
	}

	return found, nil
}

// LoadAll discovers and loads the manifests below each root, sorted by name.
//
// When names is non-empty only those manifests are loaded, and each name
// must exist. If two roots hold a manifest of the same name, the first
// root wins.
func LoadAll(roots []string, names []string) ([]*Manifest, error) {
	paths := map[string]string{}

	for _, root := range roots {
		found, err := Discover(root)
		if err != nil {
			return nil, err
		}

		for name, path := range found {
			if _, ok := paths[name]; !ok {
				paths[name] = path
			}
		}
	}

	selected := slices.Clone(names)
	if len(selected) == 0 {
		for name := range paths {
			selected = append(selected, name)
		}
	}

	slices.Sort(selected)
	selected = slices.Compact(selected)

	manifests := make([]*Manifest, 0, len(selected))

	for _, name := range selected {
		path, ok := paths[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, name)
		}

		m, err := Load(path, name)
		if err != nil {
			return nil, err
		}

		manifests = append(manifests, m)
	}

	return manifests, nil
}
