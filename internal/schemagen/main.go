// Command schemagen writes the JSON schemas for Comtrya.yaml and manifests,
// for use by editors and language servers.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/macropower/comtrya/pkg/config"
	"github.com/macropower/comtrya/pkg/manifest"
	"github.com/macropower/comtrya/pkg/yaml"
)

func main() {
	outDir := pflag.StringP("out-dir", "o", "schemas", "Output directory for the generated schemas")
	pflag.Parse()

	err := generate(*outDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func generate(outDir string) error {
	schemas := map[string]any{
		"config.json":   &config.Config{},
		"manifest.json": &manifest.Manifest{},
	}

	err := os.MkdirAll(outDir, 0o750)
	if err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for name, v := range schemas {
		data, err := yaml.NewSchemaGenerator(v).Generate()
		if err != nil {
			return fmt.Errorf("generate %s: %w", name, err)
		}

		err = os.WriteFile(filepath.Join(outDir, name), data, 0o600)
		if err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	return nil
}
