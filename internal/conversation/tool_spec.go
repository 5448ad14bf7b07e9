package conversation

// Parameter types understood by both providers.
const (
	ParamString  = "string"
	ParamInteger = "integer"
	ParamBoolean = "boolean"
)

// ToolParam describes one argument of a tool.
type ToolParam struct {
	Name        string
	Type        string
	Description string
	Enum        []string
	Required    bool
}

// ToolSpec is the provider-neutral declaration of a callable tool.
type ToolSpec struct {
	Name        string
	Description string
	Params      []ToolParam
}

// JSONSchema renders the parameters as a JSON schema object.
func (s ToolSpec) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Params))
	required := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		prop := map[string]any{
			"type":        paramType(p.Type),
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			enum := make([]any, len(p.Enum))
			for i, v := range p.Enum {
				enum[i] = v
			}
			prop["enum"] = enum
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func paramType(t string) string {
	switch t {
	case ParamInteger, ParamBoolean:
		return t
	default:
		return ParamString
	}
}
