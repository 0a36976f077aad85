// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package static

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaID is the $id of the generated dataset schema.
const SchemaID = "https://holomush.dev/schemas/reachlogic-dataset.schema.json"

var (
	compiledOnce sync.Once
	compiled     *jschema.Schema
	compileErr   error
)

// GenerateSchema generates a JSON Schema from the Data struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	schema := r.Reflect(&Data{})

	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "reachlogic dataset"
	schema.Description = "Static logic graph: items, locations, regions, exits, groups and dungeons"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

// ValidateSchema validates JSON-compatible decoded data (maps, slices and
// scalars) against the dataset schema.
func ValidateSchema(doc any) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func compiledSchema() (*jschema.Schema, error) {
	compiledOnce.Do(func() {
		schemaBytes, err := GenerateSchema()
		if err != nil {
			compileErr = err
			return
		}

		var schemaData any
		if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
			compileErr = fmt.Errorf("failed to parse schema JSON: %w", err)
			return
		}

		c := jschema.NewCompiler()
		if err := c.AddResource("dataset.json", schemaData); err != nil {
			compileErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile("dataset.json")
	})
	return compiled, compileErr
}
