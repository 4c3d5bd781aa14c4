package expr_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/comtrya/pkg/expr"
)

func TestCondition_Eval(t *testing.T) {
	t.Parallel()

	env := expr.MustNewEnvironment()
	dir := t.TempDir()

	activation := map[string]any{
		"user": map[string]any{
			"username":  "alice",
			"superuser": false,
		},
		"os": map[string]any{
			"name":   "linux",
			"family": "unix",
		},
		"variables": map[string]any{
			"editor": "vim",
		},
	}

	tcs := map[string]struct {
		expression string
		want       bool
		wantErr    error
	}{
		"os match": {
			expression: `os.name == "linux"`,
			want:       true,
		},
		"os mismatch": {
			expression: `os.name == "darwin"`,
		},
		"user field": {
			expression: `!user.superuser && user.username.startsWith("al")`,
			want:       true,
		},
		"variables": {
			expression: `variables.editor in ["vim", "nvim"]`,
			want:       true,
		},
		"missing env key with has": {
			expression: `!has(env.COMTRYA_UNSET)`,
			want:       true,
		},
		"path exists": {
			expression: `pathExists("` + filepath.ToSlash(dir) + `")`,
			want:       true,
		},
		"path does not exist": {
			expression: `pathExists("` + filepath.ToSlash(filepath.Join(dir, "missing")) + `")`,
		},
		"path helpers": {
			expression: `pathBase("/a/b.yaml") == "b.yaml" && pathExt("/a/b.yaml") == ".yaml" && pathDir("/a/b.yaml") == "/a"`,
			want:       true,
		},
		"non-boolean result": {
			expression: `os.name`,
			wantErr:    expr.ErrNotBool,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cond, err := expr.NewCondition(env, tc.expression)
			require.NoError(t, err)
			assert.Equal(t, tc.expression, cond.String())

			got, err := cond.Eval(activation)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewCondition_CompileError(t *testing.T) {
	t.Parallel()

	env := expr.MustNewEnvironment()

	tcs := map[string]string{
		"syntax":              `os.name ==`,
		"undeclared":          `hostname == "x"`,
		"unknown function":    `notAFunction("x")`,
		"wrong argument type": `pathExists(1)`,
	}

	for name, expression := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := expr.NewCondition(env, expression)
			require.Error(t, err)
			assert.Contains(t, err.Error(), expression)
		})
	}
}
