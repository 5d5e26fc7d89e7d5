// Package tool describes callable functions in a vendor-neutral shape and
// translates them into the Anthropic and OpenAI JSON schema dialects.
package tool

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrMissingField indicates a required tool attribute was never set.
var ErrMissingField = errors.New("missing field")

// MissingFieldError names the attribute Build could not find.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("tool %s is required", e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// Parameter describes one argument of a tool.
type Parameter struct {
	Type        string
	Description string
	Required    bool
	// Enum restricts the value to a set of literals; nil means unrestricted.
	Enum []string
}

// Tool is an immutable function description.
type Tool struct {
	name        string
	description string
	parameters  map[string]Parameter
}

// Builder accumulates a tool definition.
type Builder struct {
	name        *string
	description *string
	parameters  map[string]Parameter
}

// NewBuilder starts an empty tool definition.
func NewBuilder() *Builder {
	return &Builder{parameters: make(map[string]Parameter)}
}

func (b *Builder) Name(name string) *Builder {
	b.name = &name
	return b
}

func (b *Builder) Description(description string) *Builder {
	b.description = &description
	return b
}

// AddParameter registers a plain-typed parameter, replacing any parameter of the same name.
func (b *Builder) AddParameter(name, parameterType, description string, required bool) *Builder {
	b.parameters[name] = Parameter{
		Type:        parameterType,
		Description: description,
		Required:    required,
	}
	return b
}

// AddEnumParameter registers a string parameter constrained to values.
func (b *Builder) AddEnumParameter(name, description string, required bool, values []string) *Builder {
	b.parameters[name] = Parameter{
		Type:        "string",
		Description: description,
		Required:    required,
		Enum:        slices.Clone(values),
	}
	return b
}

// Build validates the definition and returns an immutable Tool.
func (b *Builder) Build() (Tool, error) {
	if b.name == nil {
		return Tool{}, &MissingFieldError{Field: "name"}
	}
	if b.description == nil {
		return Tool{}, &MissingFieldError{Field: "description"}
	}

	params := make(map[string]Parameter, len(b.parameters))
	for name, p := range b.parameters {
		p.Enum = slices.Clone(p.Enum)
		params[name] = p
	}

	return Tool{
		name:        *b.name,
		description: *b.description,
		parameters:  params,
	}, nil
}

func (t Tool) Name() string {
	return t.name
}

func (t Tool) Description() string {
	return t.description
}

// Parameter looks up a parameter by name.
func (t Tool) Parameter(name string) (Parameter, bool) {
	p, ok := t.parameters[name]
	if ok {
		p.Enum = slices.Clone(p.Enum)
	}
	return p, ok
}

// Parameters returns a copy of the parameter map.
func (t Tool) Parameters() map[string]Parameter {
	out := make(map[string]Parameter, len(t.parameters))
	for name := range t.parameters {
		out[name], _ = t.Parameter(name)
	}
	return out
}

// ToAnthropicFormat renders the flat Anthropic tool shape.
func (t Tool) ToAnthropicFormat() map[string]any {
	return map[string]any{
		"name":         t.name,
		"description":  t.description,
		"input_schema": t.inputSchema(),
	}
}

// ToOpenAIFormat renders the OpenAI function tool envelope.
func (t Tool) ToOpenAIFormat() map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.name,
			"description": t.description,
			"parameters":  t.inputSchema(),
		},
	}
}

// inputSchema builds the object schema shared by both dialects. The required
// list is recomputed on every call and sorted so output is stable.
func (t Tool) inputSchema() map[string]any {
	properties := make(map[string]any, len(t.parameters))
	required := make([]string, 0, len(t.parameters))

	for _, name := range slices.Sorted(maps.Keys(t.parameters)) {
		param := t.parameters[name]
		property := map[string]any{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Enum != nil {
			property["enum"] = slices.Clone(param.Enum)
		}
		properties[name] = property

		if param.Required {
			required = append(required, name)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
