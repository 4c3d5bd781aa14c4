package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macropower/comtrya/pkg/log"
	"github.com/macropower/comtrya/pkg/tracing"
	"github.com/macropower/comtrya/pkg/update"
)

const (
	cmdName = "comtrya"
	cmdDesc = `Configuration management for localhost.`

	cmdExamples = `  # Apply every manifest in a directory:
  comtrya -d ./manifests apply

  # Apply selected manifests:
  comtrya -d ./manifests apply -m git -m shell/zsh

  # Show what would run:
  comtrya -d ./manifests apply --dry-run

  # Debug output, including command output:
  comtrya -vv apply`
)

type RootArgs struct {
	ManifestDir   string
	ConfigPath    string
	LogLevel      string
	LogFormat     string
	TraceEndpoint string
	Verbose       int
	NoColor       bool
	TraceInsecure bool
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVarP(&ra.ManifestDir, "manifest-directory", "d", "", "Directory containing manifests")
	flags.StringVar(&ra.ConfigPath, "config", "", "Path to the comtrya configuration file")
	flags.BoolVar(&ra.NoColor, "no-color", false, "Disable color output")
	flags.CountVarP(&ra.Verbose, "verbose", "v", "Increase verbosity, may be repeated")
	flags.StringVar(&ra.LogLevel, "log-level", "info", fmt.Sprintf("Log level, one of: %s", log.AllLevels))
	flags.StringVar(&ra.LogFormat, "log-format", "text", fmt.Sprintf("Log format, one of: %s", log.AllFormats))
	flags.StringVar(&ra.TraceEndpoint, "trace-endpoint", "", "OTLP/gRPC endpoint to export traces to")
	flags.BoolVar(&ra.TraceInsecure, "trace-insecure", false, "Disable TLS for the trace endpoint")

	must(cmd.MarkPersistentFlagDirname("manifest-directory"))
	must(cmd.MarkPersistentFlagFilename("config", "yaml", "yml"))

	must(cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(log.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	))
	must(cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(log.AllLevels, cobra.ShellCompDirectiveNoFileComp),
	))
}

// RootOpt configures the root command.
type RootOpt func(*Runtime)

// WithUpdateChecker replaces the release checker.
func WithUpdateChecker(c *update.Checker) RootOpt {
	return func(rt *Runtime) {
		rt.checker = c
	}
}

// WithTracing adds options used when the tracer provider is set up.
func WithTracing(opts ...tracing.Opt) RootOpt {
	return func(rt *Runtime) {
		rt.traceOpts = append(rt.traceOpts, opts...)
	}
}

func NewRootCmd(opts ...RootOpt) *cobra.Command {
	args := NewRootArgs()

	rt := &Runtime{
		Args:    args,
		checker: update.NewChecker(),
	}
	for _, opt := range opts {
		opt(rt)
	}

	cmd := &cobra.Command{
		Use:           cmdName,
		Short:         cmdDesc,
		Example:       cmdExamples,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.Init(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	args.AddFlags(cmd)

	cmd.AddCommand(
		NewApplyCmd(rt, NewApplyArgs()),
		NewVersionCmd(rt),
		NewConfigCmd(rt),
	)

	bindEnvVars(cmd)

	return cmd
}
