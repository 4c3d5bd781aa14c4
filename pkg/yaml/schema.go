package yaml

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaGenerator reflects a JSON schema from a Go value.
// Uses [github.com/invopop/jsonschema].
type SchemaGenerator struct {
	reflector *jsonschema.Reflector
	value     any
}

// NewSchemaGenerator creates a [SchemaGenerator] for v.
func NewSchemaGenerator(v any) *SchemaGenerator {
	return &SchemaGenerator{
		value: v,
		reflector: &jsonschema.Reflector{
			RequiredFromJSONSchemaTags: true,
		},
	}
}

// Generate returns the indented JSON schema document.
func (g *SchemaGenerator) Generate() ([]byte, error) {
	js := g.reflector.Reflect(g.value)

	b, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return b, nil
}

// MustNewValidatorFor reflects a schema from v and compiles a [Validator] for it.
func MustNewValidatorFor(url string, v any) *Validator {
	data, err := NewSchemaGenerator(v).Generate()
	if err != nil {
		panic(err)
	}

	return MustNewValidator(url, data)
}
