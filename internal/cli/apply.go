package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/macropower/comtrya/pkg/apply"
	"github.com/macropower/comtrya/pkg/atom/command"
	"github.com/macropower/comtrya/pkg/elevate"
	"github.com/macropower/comtrya/pkg/manifest"
)

type ApplyArgs struct {
	Manifests []string
	DryRun    bool
}

func NewApplyArgs() *ApplyArgs {
	return &ApplyArgs{}
}

func (aa *ApplyArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&aa.Manifests, "manifests", "m", nil, "Manifests to apply, by name (default all)")
	cmd.Flags().BoolVar(&aa.DryRun, "dry-run", false, "Show what would be executed without executing it")
}

func NewApplyCmd(rt *Runtime, aa *ApplyArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "apply",
		Aliases: []string{"do", "run"},
		Short:   "Apply manifests",
		Args:    cobra.NoArgs,
		RunE: rt.Dispatch(func(ctx context.Context, rt *Runtime, _ []string) error {
			return runApply(ctx, rt, aa)
		}),
	}

	aa.AddFlags(cmd)

	return cmd
}

func runApply(ctx context.Context, rt *Runtime, aa *ApplyArgs) error {
	paths, err := rt.ManifestPaths()
	if err != nil {
		return err
	}

	manifests, err := manifest.LoadAll(paths, aa.Manifests)
	if err != nil {
		return err //nolint:wrapcheck // Already carries the manifest name.
	}

	timeout, err := rt.Config.ElevationTimeout()
	if err != nil {
		return err //nolint:wrapcheck // Validated when the configuration was loaded.
	}

	policy, err := rt.Config.DecodePolicy()
	if err != nil {
		return err //nolint:wrapcheck // Validated when the configuration was loaded.
	}

	execOpts := []command.ExecOpt{
		command.WithDecoding(policy),
		command.WithValidator(elevate.NewSudoValidator(elevate.WithTimeout(timeout))),
	}

	steps := make([]apply.Step, 0, len(manifests))

	for _, m := range manifests {
		atoms, err := m.Atoms(ctx, rt.Contexts, execOpts...)
		if err != nil {
			return err //nolint:wrapcheck // Already carries the manifest name.
		}

		steps = append(steps, apply.Step{Name: m.Name, Atoms: atoms})
	}

	slog.DebugContext(ctx, "manifests loaded",
		slog.Int("count", len(manifests)),
		slog.Any("paths", paths),
	)

	report, err := apply.NewOrchestrator(apply.WithDryRun(aa.DryRun)).Run(ctx, steps...)

	slog.InfoContext(ctx, "apply finished", slog.String("report", report.String()))

	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}

	return nil
}
