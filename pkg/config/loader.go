package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/macropower/comtrya/pkg/yaml"
)

// Object is a document that can be loaded by a [Loader].
type Object interface {
	EnsureDefaults()
	Validate() error
}

// Validator validates decoded data against a schema. The options locate
// any reported [*yaml.Error] in the source document.
type Validator interface {
	Validate(data any, opts ...yaml.ErrorOpt) error
}

// Loader decodes and validates a YAML document of type T.
type Loader[T Object] struct {
	validator Validator
	newFunc   func() T
	yamlError *yaml.ErrorWrapper
	filename  string
	data      []byte
}

// NewLoaderFromBytes creates a [Loader] for data.
// The newFunc parameter constructs an empty T (e.g. [New]).
func NewLoaderFromBytes[T Object](data []byte, filename string, newFunc func() T, validator Validator) *Loader[T] {
	return &Loader[T]{
		data:      data,
		filename:  filename,
		newFunc:   newFunc,
		validator: validator,
		yamlError: yaml.NewErrorWrapper(
			yaml.WithFilename(filename),
			yaml.WithSource(data),
			yaml.WithSourceLines(4),
		),
	}
}

// NewLoaderFromFile creates a [Loader] from a file path.
func NewLoaderFromFile[T Object](path string, newFunc func() T, validator Validator) (*Loader[T], error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	return NewLoaderFromBytes(data, path, newFunc, validator), nil
}

// Validate checks the document against the schema.
func (l *Loader[T]) Validate() error {
	if len(bytes.TrimSpace(l.data)) == 0 {
		return nil
	}

	var doc any

	err := yaml.NewLooseDecoder(bytes.NewReader(l.data)).Decode(&doc)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return l.yamlError.Wrap(err)
	}

	if doc == nil || l.validator == nil {
		return nil
	}

	return l.validator.Validate(doc, l.yamlError.Opts...) //nolint:wrapcheck // Already located in the source.
}

// Load validates and decodes the document, then applies defaults.
//
//nolint:ireturn // Generic type parameter return is intentional.
func (l *Loader[T]) Load() (T, error) {
	var zero T

	err := l.Validate()
	if err != nil {
		return zero, err
	}

	obj := l.newFunc()

	if len(bytes.TrimSpace(l.data)) > 0 {
		err = yaml.NewDecoder(bytes.NewReader(l.data)).Decode(obj)
		if err != nil && !errors.Is(err, io.EOF) {
			return zero, l.yamlError.Wrap(err)
		}
	}

	obj.EnsureDefaults()

	err = obj.Validate()
	if err != nil {
		return zero, fmt.Errorf("%s: %w", l.filename, err)
	}

	return obj, nil
}
