// Package schema reflects Go types into JSON schemas and checks decoded JSON
// documents against them.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

// Schema is a reflected JSON schema with a name used for response formats.
type Schema struct {
	Name string
	root *jsonschema.Schema
}

// For reflects a schema for T. Fields without omitempty are required.
func For[T any](name string) *Schema {
	// Structured output endpoints accept only inline, closed schemas.
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return &Schema{Name: name, root: reflector.Reflect(v)}
}

// Root exposes the underlying reflected schema.
func (s *Schema) Root() *jsonschema.Schema {
	return s.root
}

// JSON returns the schema as a generic map, ready to embed in API requests.
func (s *Schema) JSON() (map[string]any, error) {
	data, err := json.Marshal(s.root)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", s.Name, err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal schema %s: %w", s.Name, err)
	}
	// $schema and $id confuse some providers' strict mode
	delete(out, "$schema")
	delete(out, "$id")
	return out, nil
}

// ValidationError describes the first mismatch between a document and a schema.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Validate checks a decoded JSON value (as produced by encoding/json into any)
// against the schema: required fields, value types, nested objects, arrays and
// map values. Unknown keys are tolerated.
func (s *Schema) Validate(v any) error {
	return check(s.root, v, "$")
}

func check(s *jsonschema.Schema, v any, path string) error {
	if s == nil {
		return nil
	}

	switch s.Type {
	case "":
		return nil
	case "object":
		return checkObject(s, v, path)
	case "array":
		arr, ok := v.([]any)
		if !ok {
			return mismatch(path, "array", v)
		}
		for i, item := range arr {
			if err := check(s.Items, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case "string":
		if _, ok := v.(string); !ok {
			return mismatch(path, "string", v)
		}
		return nil
	case "number":
		if _, ok := v.(float64); !ok {
			return mismatch(path, "number", v)
		}
		return nil
	case "integer":
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
			return mismatch(path, "integer", v)
		}
		return nil
	case "boolean":
		if _, ok := v.(bool); !ok {
			return mismatch(path, "boolean", v)
		}
		return nil
	case "null":
		if v != nil {
			return mismatch(path, "null", v)
		}
		return nil
	default:
		return nil
	}
}

func checkObject(s *jsonschema.Schema, v any, path string) error {
	obj, ok := v.(map[string]any)
	if !ok {
		return mismatch(path, "object", v)
	}

	for _, name := range s.Required {
		val, present := obj[name]
		if !present || val == nil {
			return &ValidationError{Path: path + "." + name, Reason: "required field missing"}
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		val := obj[k]
		sub := propertySchema(s, k)
		if sub == nil {
			continue
		}
		// Optional fields may be explicitly null.
		if val == nil {
			continue
		}
		if err := check(sub, val, path+"."+k); err != nil {
			return err
		}
	}
	return nil
}

func propertySchema(s *jsonschema.Schema, key string) *jsonschema.Schema {
	if s.Properties != nil {
		if sub, ok := s.Properties.Get(key); ok {
			return sub
		}
	}
	if s.AdditionalProperties != nil && s.AdditionalProperties.Type != "" {
		return s.AdditionalProperties
	}
	return nil
}

func mismatch(path, want string, got any) error {
	return &ValidationError{Path: path, Reason: fmt.Sprintf("expected %s, got %s", want, kindOf(got))}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
	}
}

// Fields lists the top-level property names in declaration order.
func (s *Schema) Fields() []string {
	if s.root == nil || s.root.Properties == nil {
		return nil
	}
	var out []string
	for pair := s.root.Properties.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}
