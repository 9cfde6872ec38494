// Package schema generates JSON Schemas for MCP tool inputs from Go
// struct types.
package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Reflector is configured for tool input schemas. DoNotReference
// inlines every definition so the emitted schema carries no $ref,
// which keeps it digestible for MCP clients.
var Reflector = &jsonschema.Reflector{
	DoNotReference: true,
}

// Generate creates a JSON Schema for a struct type. Constraints come
// from json and jsonschema tags on its fields.
func Generate[T any]() (json.RawMessage, error) {
	var zero T
	s := Reflector.Reflect(&zero)
	return json.Marshal(s)
}

// GenerateFromValue creates a JSON Schema from a concrete value
// rather than a type parameter.
func GenerateFromValue(v any) (json.RawMessage, error) {
	return json.Marshal(Reflector.Reflect(v))
}
