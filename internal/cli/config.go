package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

// NewConfigCmd prints the loaded configuration as YAML, keyed by the same
// names accepted in Comtrya.yaml.
func NewConfigCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the active configuration, with defaults applied",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = rt.Dispatch(func(ctx context.Context, rt *Runtime, _ []string) error {
		path := rt.ConfigPath
		if path == "" {
			path = "(defaults)"
		}

		slog.InfoContext(ctx, "active configuration", slog.String("path", path))

		out, err := yaml.MarshalWithOptions(rt.Config, yaml.Indent(2), yaml.IndentSequence(true))
		if err != nil {
			return fmt.Errorf("encode configuration: %w", err)
		}

		_, err = cmd.OutOrStdout().Write(out)
		if err != nil {
			return fmt.Errorf("write configuration: %w", err)
		}

		return nil
	})

	return cmd
}
