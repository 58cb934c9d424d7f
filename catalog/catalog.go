// Package catalog converts remote tool descriptors into
// function specifications callable by the language model.
package catalog

import (
	"encoding/json"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
)

// DefaultPropertyType is used when a property does not declare its type
const DefaultPropertyType = "string"

// PropertySchema describes a single input property of a tool
type PropertySchema struct {
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	Default any    `json:"default,omitempty" yaml:"default,omitempty"`
	// HasDefault is set when the remote schema declares a default,
	// including zero values.
	HasDefault bool `json:"-" yaml:"-"`
}

// ToolDescriptor describes a tool advertised by the remote tool service
type ToolDescriptor struct {
	Name        string                    `json:"name" yaml:"name"`
	Description string                    `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  map[string]PropertySchema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required    []string                  `json:"required,omitempty" yaml:"required,omitempty"`
}

type inputSchema struct {
	Properties map[string]map[string]any `json:"properties"`
	Required   []string                  `json:"required"`
}

// NewDescriptor returns ToolDescriptor from the tool input schema,
// the schema may be a JSON object, raw JSON or any JSON encodable value.
func NewDescriptor(name, description string, schema any) (ToolDescriptor, error) {
	td := ToolDescriptor{
		Name:        name,
		Description: description,
	}
	if schema == nil {
		return td, nil
	}

	var raw []byte
	switch v := schema.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		js, err := json.Marshal(schema)
		if err != nil {
			return td, errors.Wrapf(err, "failed to encode input schema of %s", name)
		}
		raw = js
	}

	var is inputSchema
	if err := json.Unmarshal(raw, &is); err != nil {
		return td, errors.Wrapf(err, "failed to decode input schema of %s", name)
	}

	if len(is.Properties) > 0 {
		td.Properties = make(map[string]PropertySchema, len(is.Properties))
		for key, prop := range is.Properties {
			ps := PropertySchema{}
			if t, ok := prop["type"].(string); ok {
				ps.Type = t
			}
			if t, ok := prop["title"].(string); ok {
				ps.Title = t
			}
			if d, ok := prop["default"]; ok {
				ps.Default = d
				ps.HasDefault = true
			}
			td.Properties[key] = ps
		}
	}
	td.Required = is.Required
	return td, nil
}

// Convert returns the function specifications for the tools,
// in the same order.
// A property without type is `string`, a property without title is titled
// by its key, and default is carried only when declared.
// The input is not modified.
func Convert(tools []ToolDescriptor) []llms.Tool {
	res := make([]llms.Tool, 0, len(tools))
	for _, td := range tools {
		res = append(res, ConvertTool(td))
	}
	return res
}

// ConvertTool returns the function specification for the tool
func ConvertTool(td ToolDescriptor) llms.Tool {
	props := make(map[string]any, len(td.Properties))
	for key, ps := range td.Properties {
		prop := map[string]any{
			"type":  DefaultPropertyType,
			"title": key,
		}
		if ps.Type != "" {
			prop["type"] = ps.Type
		}
		if ps.Title != "" {
			prop["title"] = ps.Title
		}
		if ps.HasDefault {
			prop["default"] = ps.Default
		}
		props[key] = prop
	}

	required := make([]string, len(td.Required))
	copy(required, td.Required)

	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        td.Name,
			Description: td.Description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": props,
				"required":   required,
			},
		},
	}
}

// Exclude returns the tools which names are not in the invoked set.
func Exclude(tools []ToolDescriptor, invoked map[string]struct{}) []ToolDescriptor {
	res := make([]ToolDescriptor, 0, len(tools))
	for _, td := range tools {
		if _, ok := invoked[td.Name]; ok {
			continue
		}
		res = append(res, td)
	}
	return res
}

// Find returns the tool by exact name
func Find(tools []ToolDescriptor, name string) (ToolDescriptor, bool) {
	for _, td := range tools {
		if td.Name == name {
			return td, true
		}
	}
	return ToolDescriptor{}, false
}

// Names returns the names of the tools
func Names(tools []ToolDescriptor) []string {
	res := make([]string, 0, len(tools))
	for _, td := range tools {
		res = append(res, td.Name)
	}
	return res
}

// PropertyNames returns the sorted property names of the tool
func (td ToolDescriptor) PropertyNames() []string {
	res := make([]string, 0, len(td.Properties))
	for key := range td.Properties {
		res = append(res, key)
	}
	sort.Strings(res)
	return res
}
