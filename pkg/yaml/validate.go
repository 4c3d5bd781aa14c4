package yaml

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrSchemaViolation is wrapped by every error a [Validator] reports for a
// document that does not match its schema.
var ErrSchemaViolation = errors.New("schema violation")

var violationPrinter = message.NewPrinter(language.English)

// Validator checks decoded YAML documents against a compiled JSON schema.
// Uses [github.com/santhosh-tekuri/jsonschema/v6].
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles schemaData, registered under url.
func NewValidator(url string, schemaData []byte) (*Validator, error) {
	var doc any

	err := json.Unmarshal(schemaData, &doc)
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", url, err)
	}

	c := jsonschema.NewCompiler()

	err = c.AddResource(url, doc)
	if err != nil {
		return nil, fmt.Errorf("register schema %s: %w", url, err)
	}

	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", url, err)
	}

	return &Validator{schema: schema}, nil
}

// MustNewValidator is like [NewValidator] but panics on error.
func MustNewValidator(url string, schemaData []byte) *Validator {
	v, err := NewValidator(url, schemaData)
	if err != nil {
		panic(err)
	}

	return v
}

// Validate checks doc, a value produced by a loose decode.
//
// A mismatch is reported as an [*Error] wrapping [ErrSchemaViolation]. It
// points at the most deeply nested offending value and is passed opts, so
// callers can attach the filename and source of the document.
func (v *Validator) Validate(doc any, opts ...ErrorOpt) error {
	err := v.schema.Validate(doc)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}

	leaf := deepestCause(verr)

	return NewError(
		fmt.Errorf("%w: %s", ErrSchemaViolation, leaf.ErrorKind.LocalizedString(violationPrinter)),
		append([]ErrorOpt{WithPath(instancePath(leaf.InstanceLocation))}, opts...)...,
	)
}

// deepestCause returns the leaf cause with the longest instance location.
// Ties keep the first leaf, in schema order.
func deepestCause(verr *jsonschema.ValidationError) *jsonschema.ValidationError {
	best := verr

	for _, cause := range verr.Causes {
		c := deepestCause(cause)
		if best == verr || len(c.InstanceLocation) > len(best.InstanceLocation) {
			best = c
		}
	}

	return best
}

// instancePath converts a JSON pointer, split into tokens, to a [yaml.Path].
// Tokens that parse as unsigned integers address sequence items.
func instancePath(tokens []string) *yaml.Path {
	b := NewPathBuilder().Root()

	for _, tok := range tokens {
		idx, err := strconv.ParseUint(tok, 10, 0)
		if err != nil {
			b = b.Child(tok)

			continue
		}

		b = b.Index(uint(idx))
	}

	return b.Build()
}
