// Copyright (c) Microsoft. All rights reserved.

package chat

import (
	"encoding/json"
	"reflect"
	"strings"
)

// GenerateSchema builds a JSON Schema for T using reflection. Struct fields
// are named by their json tag; the jsonschema tag understands description,
// required, enum (values separated by |) and default.
func GenerateSchema[T any]() json.RawMessage {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	b, _ := json.Marshal(schemaFor(t))
	return b
}

func schemaFor(t reflect.Type) map[string]any {
	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": schemaFor(t.Elem())}
	case reflect.Pointer:
		return schemaFor(t.Elem())
	case reflect.Map:
		s := map[string]any{"type": "object"}
		if t.Key().Kind() == reflect.String {
			s["additionalProperties"] = schemaFor(t.Elem())
		}
		return s
	case reflect.Struct:
		return structSchema(t)
	default:
		return map[string]any{"type": "string"}
	}
}

func structSchema(t reflect.Type) map[string]any {
	props := map[string]any{}
	var required []string

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, ok := jsonName(f)
		if !ok {
			continue
		}

		prop := schemaFor(f.Type)
		tag := parseSchemaTag(f.Tag.Get("jsonschema"))
		if d, ok := tag["description"]; ok {
			prop["description"] = d
		}
		if d, ok := tag["default"]; ok {
			prop["default"] = d
		}
		if e, ok := tag["enum"]; ok {
			var vals []any
			for _, v := range strings.Split(e, "|") {
				vals = append(vals, strings.TrimSpace(v))
			}
			prop["enum"] = vals
		}
		if _, ok := tag["required"]; ok {
			required = append(required, name)
		}
		props[name] = prop
	}

	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func jsonName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return f.Name, true
}

// parseSchemaTag splits `description=x,required` into a key/value map.
func parseSchemaTag(tag string) map[string]string {
	out := map[string]string{}
	if tag == "" {
		return out
	}
	for _, part := range strings.Split(tag, ",") {
		k, v, _ := strings.Cut(part, "=")
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
