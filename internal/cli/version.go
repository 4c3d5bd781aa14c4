package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macropower/comtrya/pkg/version"
)

func NewVersionCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = rt.Dispatch(func(_ context.Context, _ *Runtime, _ []string) error {
		_, err := fmt.Fprint(cmd.OutOrStdout(), version.Info(cmdName))
		if err != nil {
			return fmt.Errorf("write version: %w", err)
		}

		return nil
	})

	return cmd
}
