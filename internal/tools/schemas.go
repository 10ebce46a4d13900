package tools

// Common JSON Schema building blocks

// StringSchema creates a JSON schema for a string field
func StringSchema() map[string]any {
	return map[string]any{
		"type": "string",
	}
}

// BuildSchema creates a complete JSON schema object with properties and required fields
func BuildSchema(properties map[string]any, required []string) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// NoArgsSchema is the schema of tools that take no arguments
func NoArgsSchema() map[string]any {
	return BuildSchema(nil, nil)
}

// SingleStringSchema is an object schema with one string property
func SingleStringSchema(field string, required bool) map[string]any {
	var req []string
	if required {
		req = []string{field}
	}
	return BuildSchema(map[string]any{
		field: StringSchema(),
	}, req)
}
