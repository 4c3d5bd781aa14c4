package yaml_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/comtrya/pkg/yaml"
)

func TestError_Error(t *testing.T) {
	t.Parallel()

	source := []byte(`manifest_paths:
  - .
disable_update_check: maybe
`)

	tcs := map[string]struct {
		err  *yaml.Error
		want string
	}{
		"without path": {
			err:  yaml.NewError(errors.New("value is required")),
			want: "value is required",
		},
		"path without source": {
			err: yaml.NewError(errors.New("expected boolean"),
				yaml.WithPath(yaml.NewPathBuilder().Root().Child("disable_update_check").Build()),
			),
			want: "error at $.disable_update_check: expected boolean",
		},
		"path with source": {
			err: yaml.NewError(errors.New("expected boolean"),
				yaml.WithPath(yaml.NewPathBuilder().Root().Child("disable_update_check").Build()),
				yaml.WithSource(source),
				yaml.WithFilename("Comtrya.yaml"),
				yaml.WithSourceLines(1),
			),
			want: "Comtrya.yaml: [3:1] expected boolean\n" +
				"  2 |   - .\n" +
				"> 3 | disable_update_check: maybe",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestErrorWrapper_Wrap(t *testing.T) {
	t.Parallel()

	ew := yaml.NewErrorWrapper(yaml.WithFilename("a.yaml"))

	require.NoError(t, ew.Wrap(nil))

	plain := errors.New("plain")
	assert.Same(t, plain, ew.Wrap(plain))

	wrapped := ew.Wrap(yaml.NewError(errors.New("bad")))
	var yamlErr *yaml.Error
	require.ErrorAs(t, wrapped, &yamlErr)
	assert.Equal(t, "a.yaml", yamlErr.Filename)
}
