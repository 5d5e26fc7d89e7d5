package tool

import (
	"fmt"
	"strings"
)

// Declaration is the JSON form of a tool accepted from callers.
type Declaration struct {
	Name        string                          `json:"name"`
	Description string                          `json:"description"`
	Parameters  map[string]ParameterDeclaration `json:"parameters,omitempty"`
}

// ParameterDeclaration is the JSON form of a Parameter.
type ParameterDeclaration struct {
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description"`
	Required    bool     `json:"required,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Build converts the declaration into a Tool. Blank names and descriptions
// count as missing.
func (d Declaration) Build() (Tool, error) {
	b := NewBuilder()
	if name := strings.TrimSpace(d.Name); name != "" {
		b.Name(name)
	}
	if desc := strings.TrimSpace(d.Description); desc != "" {
		b.Description(desc)
	}

	for name, p := range d.Parameters {
		if strings.TrimSpace(name) == "" {
			return Tool{}, fmt.Errorf("tool %q: parameter name must not be empty", d.Name)
		}
		if len(p.Enum) > 0 {
			if p.Type != "" && p.Type != "string" {
				return Tool{}, fmt.Errorf("tool %q: enum parameter %q must be of type string, got %q", d.Name, name, p.Type)
			}
			b.AddEnumParameter(name, p.Description, p.Required, p.Enum)
			continue
		}
		paramType := p.Type
		if paramType == "" {
			paramType = "string"
		}
		b.AddParameter(name, paramType, p.Description, p.Required)
	}

	return b.Build()
}
