package yaml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/goccy/go-yaml/token"
)

func NewPathBuilder() *yaml.PathBuilder {
	return &yaml.PathBuilder{}
}

type ErrorWrapper struct {
	Opts []ErrorOpt
}

func NewErrorWrapper(opts ...ErrorOpt) *ErrorWrapper {
	return &ErrorWrapper{
		Opts: opts,
	}
}

// Wrap wraps an error with additional context for [Error]s.
// If the error isn't an [Error], it returns the original error unmodified.
func (ew *ErrorWrapper) Wrap(err error, opts ...ErrorOpt) error {
	if err == nil {
		return nil
	}

	var yamlErr *Error
	if errors.As(err, &yamlErr) {
		for _, opt := range ew.Opts {
			opt(yamlErr)
		}

		for _, opt := range opts {
			opt(yamlErr)
		}

		return yamlErr
	}

	return err
}

// Error represents a YAML error. It includes the original error, and either
// the [*token.Token] or the [*yaml.Path] where the error occurred.
type Error struct {
	Err         error
	Path        *yaml.Path
	Token       *token.Token
	Filename    string
	Source      []byte
	SourceLines int // Number of lines to show before the error in the source.
}

func NewError(err error, opts ...ErrorOpt) *Error {
	e := &Error{
		Err:         err,
		SourceLines: 2,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

type ErrorOpt func(e *Error)

func WithSourceLines(lines int) ErrorOpt {
	return func(e *Error) {
		e.SourceLines = lines
	}
}

func WithPath(path *yaml.Path) ErrorOpt {
	return func(e *Error) {
		e.Path = path
	}
}

func WithToken(tk *token.Token) ErrorOpt {
	return func(e *Error) {
		e.Token = tk
	}
}

func WithFilename(name string) ErrorOpt {
	return func(e *Error) {
		e.Filename = name
	}
}

func WithSource(source []byte) ErrorOpt {
	return func(e *Error) {
		e.Source = source
	}
}

func (e Error) Error() string {
	if e.Err == nil {
		return ""
	}

	prefix := ""
	if e.Filename != "" {
		prefix = e.Filename + ": "
	}

	if e.Path == nil && e.Token == nil {
		return prefix + e.Err.Error()
	}

	tk := e.Token
	if tk == nil && e.Source != nil {
		tk = getTokenFromPath(e.Source, e.Path)
	}
	if tk == nil {
		return fmt.Sprintf("%serror at %s: %v", prefix, e.Path.String(), e.Err)
	}

	msg := fmt.Sprintf("%s[%d:%d] %v", prefix, tk.Position.Line, tk.Position.Column, e.Err)
	if len(e.Source) == 0 {
		return msg
	}

	return msg + "\n" + e.sourceExcerpt(tk.Position.Line)
}

func (e Error) Unwrap() error {
	return e.Err
}

// sourceExcerpt renders the lines leading up to and including errLine,
// marking errLine with '>'.
func (e Error) sourceExcerpt(errLine int) string {
	lines := strings.Split(string(e.Source), "\n")
	if errLine < 1 || errLine > len(lines) {
		return ""
	}

	first := max(1, errLine-e.SourceLines)
	width := len(fmt.Sprint(errLine))

	var sb strings.Builder
	for n := first; n <= errLine; n++ {
		marker := " "
		if n == errLine {
			marker = ">"
		}

		fmt.Fprintf(&sb, "%s %*d | %s\n", marker, width, n, lines[n-1])
	}

	return strings.TrimRight(sb.String(), "\n")
}

func getTokenFromPath(source []byte, path *yaml.Path) *token.Token {
	if path == nil {
		return nil
	}

	file, err := parser.ParseBytes(source, 0)
	if err != nil {
		return nil
	}

	// Point at the key rather than the value when the path has a parent mapping.
	if keyToken := findKeyToken(file, path); keyToken != nil {
		return keyToken
	}

	node, err := path.FilterFile(file)
	if err != nil {
		return nil
	}

	return node.GetToken()
}

// findKeyToken attempts to find the KEY token for the given path by looking
// in the parent node.
func findKeyToken(file *ast.File, path *yaml.Path) *token.Token {
	pathStr := path.String()

	lastDot := strings.LastIndex(pathStr, ".")
	lastBracket := strings.LastIndex(pathStr, "[")

	if lastDot == -1 && lastBracket == -1 {
		return nil // Root path, no parent.
	}

	if lastDot <= lastBracket {
		// Array index case - no key to find.
		return nil
	}

	parentPathStr := pathStr[:lastDot]
	lastSegment := pathStr[lastDot+1:]

	parentPath, err := yaml.PathString(parentPathStr)
	if err != nil {
		return nil
	}

	parentNode, err := parentPath.FilterFile(file)
	if err != nil {
		return nil
	}

	if mapping, ok := parentNode.(*ast.MappingNode); ok {
		for _, val := range mapping.Values {
			if val.Key.String() == lastSegment {
				return val.Key.GetToken()
			}
		}
	}

	return nil
}
