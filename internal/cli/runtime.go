package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/macropower/comtrya/pkg/config"
	"github.com/macropower/comtrya/pkg/contexts"
	"github.com/macropower/comtrya/pkg/log"
	"github.com/macropower/comtrya/pkg/tracing"
	"github.com/macropower/comtrya/pkg/update"
	"github.com/macropower/comtrya/pkg/version"
)

// Runtime is built once per invocation and handed to the selected command.
type Runtime struct {
	checker   *update.Checker
	shutdown  tracing.ShutdownFunc
	traceOpts []tracing.Opt

	Args       *RootArgs
	Config     *config.Config
	Contexts   *contexts.Contexts
	ConfigPath string
}

// Init configures logging and tracing, loads the configuration, checks for
// updates, and detects contexts.
func (rt *Runtime) Init(ctx context.Context, stderr io.Writer) error {
	logHandler, err := log.CreateHandlerWithStrings(stderr, rt.Args.LogLevel, rt.Args.LogFormat,
		log.WithVerbosity(rt.Args.Verbose),
		log.WithNoColor(rt.Args.NoColor),
	)
	if err != nil {
		return fmt.Errorf("%w: create log handler: %w", config.ErrInvalidConfig, err)
	}

	slog.SetDefault(slog.New(logHandler))

	traceOpts := append([]tracing.Opt{tracing.WithInsecure(rt.Args.TraceInsecure)}, rt.traceOpts...)

	rt.shutdown, err = tracing.Setup(ctx, rt.Args.TraceEndpoint, traceOpts...)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	// Commands are not dispatched after a failed Init, so the tracer
	// provider has to be released here.
	rt.Config, rt.ConfigPath, err = config.Load(rt.Args.ConfigPath, rt.Args.ManifestDir)
	if err != nil {
		return errors.Join(err, rt.Close(context.WithoutCancel(ctx)))
	}

	slog.DebugContext(ctx, "configuration loaded",
		slog.String("path", rt.ConfigPath),
		slog.Any("manifest_paths", rt.Config.ManifestPaths),
	)

	if !rt.Config.DisableUpdateCheck {
		rt.checkForUpdates(ctx, stderr)
	}

	rt.Contexts = contexts.Build(ctx, contexts.DefaultProviders(rt.Config.Variables)...)

	return nil
}

// ManifestPaths returns the directories to load manifests from. The
// manifest directory flag takes precedence over the configuration.
func (rt *Runtime) ManifestPaths() ([]string, error) {
	if rt.Args.ManifestDir != "" {
		return []string{rt.Args.ManifestDir}, nil
	}

	paths := rt.Config.ResolveManifestPaths(rt.ConfigPath)
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no manifest directory given and no manifest_paths configured", config.ErrInvalidConfig)
	}

	return paths, nil
}

// Close flushes traces.
func (rt *Runtime) Close(ctx context.Context) error {
	if rt.shutdown == nil {
		return nil
	}

	shutdown := rt.shutdown
	rt.shutdown = nil

	return shutdown(ctx)
}

// Dispatch wraps a command handler so that it runs with the initialized
// runtime and releases it afterwards. Handler errors are returned as is.
func (rt *Runtime) Dispatch(fn func(ctx context.Context, rt *Runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			err = errors.Join(err, rt.Close(context.WithoutCancel(cmd.Context())))
		}()

		return fn(cmd.Context(), rt, args)
	}
}

func (rt *Runtime) checkForUpdates(ctx context.Context, w io.Writer) {
	rel, err := rt.checker.Check(ctx, version.GetVersion())
	if err != nil {
		slog.DebugContext(ctx, "update check skipped", slog.Any("err", err))

		return
	}
	if rel == nil {
		return
	}

	err = update.Notice(w, version.GetVersion(), rel, rt.Args.NoColor)
	if err != nil {
		slog.DebugContext(ctx, "write update notice", slog.Any("err", err))
	}
}
