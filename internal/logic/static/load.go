// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package static

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// Format is a dataset encoding.
type Format string

// Supported dataset encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat picks a format from a file extension, falling back to
// sniffing the content.
func DetectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// Load decodes, schema-validates, indexes and reference-checks a dataset.
func Load(data []byte, format Format) (*Data, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, oops.In("static").Errorf("dataset is empty")
	}

	var doc any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, oops.In("static").Wrapf(err, "invalid JSON")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, oops.In("static").Wrapf(err, "invalid YAML")
		}
		doc = convertToJSONTypes(doc)
	default:
		return nil, oops.In("static").With("format", format).Errorf("unsupported dataset format %q", format)
	}

	// Round-trip through encoding/json so numbers and maps have the exact
	// shapes the schema validator and the rule decoder expect.
	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, oops.In("static").Wrapf(err, "re-encoding dataset")
	}
	var generic any
	if err := json.Unmarshal(canonical, &generic); err != nil {
		return nil, oops.In("static").Wrapf(err, "re-decoding dataset")
	}
	if err := ValidateSchema(generic); err != nil {
		return nil, oops.In("static").Wrap(err)
	}

	var d Data
	if err := json.Unmarshal(canonical, &d); err != nil {
		return nil, oops.In("static").Wrapf(err, "decoding dataset")
	}
	d.Index()
	if err := d.Validate(); err != nil {
		return nil, oops.In("static").Code(CodeMissingStaticData).With("game", d.Game).Wrap(err)
	}
	return &d, nil
}

// LoadFile reads and loads a dataset from disk.
func LoadFile(path string) (*Data, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, oops.In("static").With("path", path).Wrapf(err, "reading dataset")
	}
	d, err := Load(data, DetectFormat(path, data))
	if err != nil {
		return nil, oops.In("static").With("path", path).Wrap(err)
	}
	return d, nil
}

// convertToJSONTypes converts YAML-decoded values into shapes encoding/json
// can marshal. yaml.v3 produces map[string]any for string-keyed mappings
// but map[any]any is possible for non-string keys.
func convertToJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = convertToJSONTypes(v)
		}
		return result
	case map[any]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[toKey(k)] = convertToJSONTypes(v)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v := range val {
			result[i] = convertToJSONTypes(v)
		}
		return result
	default:
		return val
	}
}

func toKey(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	b, err := json.Marshal(k)
	if err != nil {
		return ""
	}
	return strings.Trim(string(b), `"`)
}
