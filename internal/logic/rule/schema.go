// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"github.com/invopop/jsonschema"
)

// wireTypes lists every accepted value of the "type" discriminator,
// including exporter shorthands.
var wireTypes = []any{
	"constant", "literal", "name", "attribute", "call", "function_call",
	"state_method", "helper", "item_check", "count_check", "group_check",
	"compare", "and", "or", "not",
}

// JSONSchema describes a serialized rule node for dataset schema
// generation. Only the discriminator is constrained; the shape of each
// kind is checked when the node is decoded.
func (Node) JSONSchema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	props.Set("type", &jsonschema.Schema{
		Type:        "string",
		Enum:        wireTypes,
		Description: "Rule node kind",
	})
	object := &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   []string{"type"},
	}
	return &jsonschema.Schema{
		Description: "Serialized access rule",
		AnyOf: []*jsonschema.Schema{
			object,
			{Type: "boolean"},
			{Type: "null"},
		},
	}
}
