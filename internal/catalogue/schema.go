package catalogue

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// catalogueSchema is the JSON schema a catalogue document must satisfy
// before decoding. Structural problems are rejected here with the
// library's path-qualified messages; semantic checks (duplicate IDs,
// empty threads) happen after decode.
var catalogueSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"threads": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":      "string",
						"minLength": 1,
					},
					"tube": map[string]any{
						"type":    "integer",
						"minimum": 1,
						"maximum": 3,
					},
					"stitches": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"id": map[string]any{
									"type":      "string",
									"minLength": 1,
								},
								"content": true,
							},
							"required":             []any{"id"},
							"additionalProperties": false,
						},
					},
				},
				"required":             []any{"id", "tube", "stitches"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []any{"threads"},
	"additionalProperties": false,
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// compiled returns the compiled catalogue schema, compiling it on first use.
func compiled() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The jsonschema library expects a parsed JSON value (any), not
		// raw bytes. Marshal then unmarshal for a clean representation.
		defBytes, err := json.Marshal(catalogueSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema definition: %w", err)
			return
		}
		var defParsed any
		if err := json.Unmarshal(defBytes, &defParsed); err != nil {
			compileErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		const schemaURL = "schema://catalogue.json"
		if err := c.AddResource(schemaURL, defParsed); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(schemaURL)
	})
	return compiledSchema, compileErr
}

// validate checks raw catalogue bytes against the schema.
func validate(raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	schema, err := compiled()
	if err != nil {
		return fmt.Errorf("compile catalogue schema: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return fmt.Errorf("catalogue schema validation failed: %w", err)
	}
	return nil
}
