package expr

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
)

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Strings(),
		ext.Lists(),

		// `pathExists` reports whether a file or directory exists.
		// Example: !pathExists(user.home_dir + "/.oh-my-zsh").
		cel.Function("pathExists",
			cel.Overload("path_exists", []*cel.Type{cel.StringType}, cel.BoolType,
				cel.UnaryBinding(stringFunc("pathExists", func(path string) ref.Val {
					_, err := os.Stat(path)

					return types.Bool(err == nil)
				})),
			),
		),

		// `commandExists` reports whether an executable can be found in $PATH.
		// Example: !commandExists("brew").
		cel.Function("commandExists",
			cel.Overload("command_exists", []*cel.Type{cel.StringType}, cel.BoolType,
				cel.UnaryBinding(stringFunc("commandExists", func(name string) ref.Val {
					_, err := exec.LookPath(name)

					return types.Bool(err == nil)
				})),
			),
		),

		// `pathBase` returns the last element of the path.
		cel.Function("pathBase",
			cel.Overload("path_base", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("pathBase", func(path string) ref.Val {
					return types.String(filepath.Base(path))
				})),
			),
		),

		// `pathDir` returns all but the last element of the path.
		cel.Function("pathDir",
			cel.Overload("path_dir", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("pathDir", func(path string) ref.Val {
					return types.String(filepath.Dir(path))
				})),
			),
		),

		// `pathExt` returns the file extension of the path.
		cel.Function("pathExt",
			cel.Overload("path_ext", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("pathExt", func(path string) ref.Val {
					return types.String(filepath.Ext(path))
				})),
			),
		),
	}
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

func stringFunc(name string, fn func(string) ref.Val) func(ref.Val) ref.Val {
	return func(arg ref.Val) ref.Val {
		s, ok := arg.(types.String).Value().(string)
		if !ok {
			return types.NewErr("%s: invalid string value", name)
		}

		return fn(s)
	}
}
