package cli_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/macropower/comtrya/internal/cli"
	"github.com/macropower/comtrya/pkg/apply"
	"github.com/macropower/comtrya/pkg/config"
	"github.com/macropower/comtrya/pkg/manifest"
	"github.com/macropower/comtrya/pkg/tracing"
	"github.com/macropower/comtrya/pkg/update"
	"github.com/macropower/comtrya/pkg/version"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func manifestDir(t *testing.T, manifests map[string]string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("requires POSIX utilities")
	}

	// Keep the test independent of the user's configuration.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := t.TempDir()
	writeFile(t, dir, config.FileName, "disable_update_check: true\n")

	for name, content := range manifests {
		writeFile(t, dir, name, content)
	}

	return dir
}

func execute(t *testing.T, args []string, opts ...cli.RootOpt) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := cli.NewRootCmd(opts...)
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(context.Background())

	return stdout.String(), stderr.String(), err
}

//nolint:paralleltest // Commands replace the default logger.
func TestApply(t *testing.T) {
	out := t.TempDir()

	dir := manifestDir(t, map[string]string{
		"a.yaml": `actions:
  - action: command.run
    command: touch
    args: [a]
    dir: ` + out + `
`,
		"nested/b.yml": `actions:
  - action: cmd.run
    shell: sh -c "printf %s \"$GREETING\" > b"
    dir: ` + out + `
    env:
      - name: GREETING
        value: hello
  - action: command.run
    command: touch
    args: [never]
    dir: ` + out + `
    where: user.username == "nobody-at-all"
`,
	})

	tcs := map[string][]string{
		"apply": {"-d", dir, "apply"},
		"do":    {"-d", dir, "do"},
		"run":   {"--manifest-directory", dir, "run"},
	}

	for name, args := range tcs {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, os.RemoveAll(filepath.Join(out, "a")))
			require.NoError(t, os.RemoveAll(filepath.Join(out, "b")))

			_, _, err := execute(t, args)
			require.NoError(t, err)
			assert.Equal(t, 0, cli.ExitCode(err))

			assert.FileExists(t, filepath.Join(out, "a"))
			assert.NoFileExists(t, filepath.Join(out, "never"))

			b, err := os.ReadFile(filepath.Join(out, "b"))
			require.NoError(t, err)
			assert.Equal(t, "hello", string(b))
		})
	}
}

//nolint:paralleltest // Commands replace the default logger.
func TestApply_SelectedManifests(t *testing.T) {
	out := t.TempDir()

	dir := manifestDir(t, map[string]string{
		"a.yaml": "actions:\n  - action: command.run\n    command: touch\n    args: [" + filepath.Join(out, "a") + "]\n",
		"b.yaml": "actions:\n  - action: command.run\n    command: touch\n    args: [" + filepath.Join(out, "b") + "]\n",
	})

	_, _, err := execute(t, []string{"-d", dir, "apply", "-m", "b"})
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(out, "a"))
	assert.FileExists(t, filepath.Join(out, "b"))

	_, _, err = execute(t, []string{"-d", dir, "apply", "-m", "missing"})
	require.ErrorIs(t, err, manifest.ErrManifestNotFound)
	assert.Equal(t, 1, cli.ExitCode(err))
}

//nolint:paralleltest // Commands replace the default logger.
func TestApply_DryRun(t *testing.T) {
	out := t.TempDir()

	dir := manifestDir(t, map[string]string{
		"a.yaml": "actions:\n  - action: command.run\n    command: touch\n    args: [" + filepath.Join(out, "a") + "]\n",
	})

	_, stderr, err := execute(t, []string{"-d", dir, "--log-format", "json", "apply", "--dry-run"})
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(out, "a"))
	assert.Contains(t, stderr, "would execute")
}

//nolint:paralleltest // Commands replace the default logger.
func TestApply_FailingCommand(t *testing.T) {
	out := t.TempDir()

	dir := manifestDir(t, map[string]string{
		"a.yaml": `actions:
  - action: command.run
    shell: sh -c "echo nope >&2; exit 3"
  - action: command.run
    command: touch
    args: [` + filepath.Join(out, "after") + `]
`,
	})

	_, _, err := execute(t, []string{"-d", dir, "apply"})
	require.ErrorIs(t, err, apply.ErrAtomFailed)
	assert.Equal(t, 1, cli.ExitCode(err))

	var atomErr *apply.AtomError
	require.ErrorAs(t, err, &atomErr)
	assert.Equal(t, 3, atomErr.Code)
	assert.Equal(t, "nope\n", atomErr.Stderr)

	assert.NoFileExists(t, filepath.Join(out, "after"))
}

//nolint:paralleltest // Commands replace the default logger.
func TestApply_InvalidConfig(t *testing.T) {
	tcs := map[string]func(t *testing.T) []string{
		"unknown key": func(t *testing.T) []string {
			t.Helper()

			dir := manifestDir(t, nil)
			writeFile(t, dir, config.FileName, "no_such_key: true\n")

			return []string{"-d", dir, "apply"}
		},
		"missing explicit config": func(t *testing.T) []string {
			t.Helper()

			dir := manifestDir(t, nil)

			return []string{"-d", dir, "--config", filepath.Join(dir, "missing.yaml"), "apply"}
		},
		"invalid log level": func(t *testing.T) []string {
			t.Helper()

			dir := manifestDir(t, nil)

			return []string{"-d", dir, "--log-level", "loud", "apply"}
		},
		"no manifest paths": func(t *testing.T) []string {
			t.Helper()

			dir := manifestDir(t, nil)

			return []string{"--config", filepath.Join(dir, config.FileName), "apply"}
		},
	}

	for name, setup := range tcs {
		t.Run(name, func(t *testing.T) {
			_, _, err := execute(t, setup(t))
			require.ErrorIs(t, err, config.ErrInvalidConfig)
			assert.Equal(t, 2, cli.ExitCode(err))
		})
	}
}

type countingExporter struct {
	shutdowns int
}

func (e *countingExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error {
	return nil
}

func (e *countingExporter) Shutdown(context.Context) error {
	e.shutdowns++

	return nil
}

//nolint:paralleltest // Commands replace the global tracer provider.
func TestTracing_Shutdown(t *testing.T) {
	tcs := map[string]struct {
		config  string
		wantErr error
	}{
		"command dispatched": {
			config: "disable_update_check: true\n",
		},
		"config rejected before dispatch": {
			config:  "no_such_key: true\n",
			wantErr: config.ErrInvalidConfig,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

			dir := manifestDir(t, nil)
			writeFile(t, dir, config.FileName, tc.config)

			exp := &countingExporter{}

			_, _, err := execute(t, []string{"-d", dir, "version"}, cli.WithTracing(tracing.WithExporter(exp)))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, 1, exp.shutdowns)
		})
	}
}

//nolint:paralleltest // Commands replace the default logger.
func TestApply_ManifestPathsFromConfig(t *testing.T) {
	out := t.TempDir()
	dir := manifestDir(t, map[string]string{
		"manifests/a.yaml": "actions:\n  - action: command.run\n    command: touch\n    args: [" + filepath.Join(out, "a") + "]\n",
	})
	writeFile(t, dir, config.FileName, "disable_update_check: true\nmanifest_paths: [manifests]\n")

	_, _, err := execute(t, []string{"--config", filepath.Join(dir, config.FileName), "apply"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "a"))
}

//nolint:paralleltest // Commands replace the default logger.
func TestVersion(t *testing.T) {
	dir := manifestDir(t, nil)

	stdout, _, err := execute(t, []string{"-d", dir, "version"})
	require.NoError(t, err)
	assert.Equal(t, version.Info("comtrya"), stdout)
}

//nolint:paralleltest // Commands replace the default logger.
func TestConfig(t *testing.T) {
	dir := manifestDir(t, nil)
	writeFile(t, dir, config.FileName,
		"disable_update_check: true\nmanifest_paths: [manifests]\nvariables:\n  editor: vim\n")

	stdout, _, err := execute(t, []string{"-d", dir, "config"})
	require.NoError(t, err)

	assert.Contains(t, stdout, "disable_update_check: true")
	assert.Contains(t, stdout, "editor: vim")
	assert.Contains(t, stdout, "decoding: lossy")
	assert.Contains(t, stdout, "manifest_paths:\n  - manifests\n")

	// The printed configuration is itself a valid configuration file.
	cfg, err := config.NewLoaderFromBytes([]byte(stdout), "printed.yaml", config.New, config.DefaultValidator).Load()
	require.NoError(t, err)
	assert.Equal(t, "vim", cfg.Variables["editor"])
}

//nolint:paralleltest // Commands replace the default logger and version.
func TestUpdateNotice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name": "v99.0.0"}`))
	}))
	t.Cleanup(srv.Close)

	prev := version.Version
	version.Version = "0.1.0"
	t.Cleanup(func() { version.Version = prev })

	dir := manifestDir(t, nil)
	writeFile(t, dir, config.FileName, "")

	checker := update.NewChecker(update.WithBaseURL(srv.URL))

	_, stderr, err := execute(t, []string{"-d", dir, "--no-color", "version"}, cli.WithUpdateChecker(checker))
	require.NoError(t, err)
	assert.Contains(t, stderr, "A new version of comtrya is available: v0.1.0 -> v99.0.0")
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err  error
		want int
	}{
		"success":        {want: 0},
		"general":        {err: errors.New("boom"), want: 1},
		"atom failure":   {err: &apply.AtomError{Err: apply.ErrAtomFailed}, want: 1},
		"invalid config": {err: config.ErrInvalidConfig, want: 2},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, cli.ExitCode(tc.err))
		})
	}
}
