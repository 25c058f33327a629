// Package tool defines the tool interface and registry used by the
// iteration engine to dispatch model-requested tool calls.
package tool

import (
	"context"
	"encoding/json"
)

// Tool is the interface that all tools must implement
type Tool interface {
	// Name returns the tool name (used in API calls)
	Name() string

	// Description returns a human-readable description of what the tool does
	Description() string

	// InputSchema returns the JSON Schema for the tool's input parameters
	InputSchema() Schema

	// Execute runs the tool with the provided arguments and returns the
	// result text. Expected failures (bad input, missing resource, backend
	// unavailable) are returned as an *ExecutionError so the engine can
	// report them to the model; any other error aborts the run.
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// Schema defines the JSON Schema for a tool's input parameters
type Schema struct {
	// Type must be "object"
	Type string `json:"type"`

	// Properties defines the tool's parameters
	Properties map[string]PropertyDef `json:"properties"`

	// Required lists the names of required parameters
	Required []string `json:"required,omitempty"`
}

// ObjectSchema creates a Schema with type "object".
func ObjectSchema(properties map[string]PropertyDef, required ...string) Schema {
	return Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// PropertyDef defines a single property in the tool schema
type PropertyDef struct {
	// Type is the JSON Schema type (string, number, boolean, array, object)
	Type string `json:"type"`

	// Description explains what this parameter is for
	Description string `json:"description,omitempty"`

	// Enum restricts the parameter to specific values
	Enum []string `json:"enum,omitempty"`

	// Items defines the schema for array items (when Type is "array")
	Items *PropertyDef `json:"items,omitempty"`

	// Properties defines nested object properties (when Type is "object")
	Properties map[string]PropertyDef `json:"properties,omitempty"`

	// Minimum/Maximum for number types
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`
}

// asMap converts the schema to a generic JSON-schema map, the shape
// backend adapters expect.
func (s Schema) asMap() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, def := range s.Properties {
		props[name] = def.asMap()
	}
	m := map[string]any{
		"type":       s.Type,
		"properties": props,
	}
	if len(s.Required) > 0 {
		m["required"] = s.Required
	}
	return m
}

func (d PropertyDef) asMap() map[string]any {
	m := map[string]any{"type": d.Type}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if len(d.Enum) > 0 {
		m["enum"] = d.Enum
	}
	if d.Items != nil {
		m["items"] = d.Items.asMap()
	}
	if len(d.Properties) > 0 {
		props := make(map[string]any, len(d.Properties))
		for name, def := range d.Properties {
			props[name] = def.asMap()
		}
		m["properties"] = props
	}
	if d.Minimum != nil {
		m["minimum"] = *d.Minimum
	}
	if d.Maximum != nil {
		m["maximum"] = *d.Maximum
	}
	return m
}

// funcTool is a simple Tool implementation using a function
type funcTool struct {
	name        string
	description string
	schema      Schema
	fn          func(context.Context, json.RawMessage) (string, error)
}

// Name implements Tool
func (t *funcTool) Name() string {
	return t.name
}

// Description implements Tool
func (t *funcTool) Description() string {
	return t.description
}

// InputSchema implements Tool
func (t *funcTool) InputSchema() Schema {
	return t.schema
}

// Execute implements Tool
func (t *funcTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	return t.fn(ctx, args)
}

// NewFuncTool creates a Tool from a function
// This is useful for simple tools where you don't want to create a full struct
func NewFuncTool(
	name string,
	description string,
	schema Schema,
	fn func(context.Context, json.RawMessage) (string, error),
) Tool {
	return &funcTool{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
	}
}
