package domain

// JSONSchema captures the subset of JSON Schema used for tool parameter
// contracts: an object with typed properties and a required set.
type JSONSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// ToolDefinition describes one tool exposed to the provider. Immutable
// at runtime. The schema is a validation hint for the provider side;
// handlers still re-validate their inputs.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  *JSONSchema `json:"parameters,omitempty"`
}
