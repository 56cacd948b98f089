package llm

// BuildContactJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. It is embedded in the prompt as the output contract and used
// locally to validate what comes back.
func BuildContactJSONSchema() map[string]any {
	contact := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":       map[string]any{"type": "string"},
			"first_name": map[string]any{"type": "string"},
			"last_name":  map[string]any{"type": "string"},
			"company":    map[string]any{"type": "string"},
			"address":    map[string]any{"type": "string"},
			"city":       map[string]any{"type": "string"},
			"state":      map[string]any{"type": "string"},
			"zip":        map[string]any{"type": "string"},
			"unit":       map[string]any{"type": "string"},
			"phones": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"maxItems": 8,
			},
			"emails": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"maxItems": 2,
			},
			"ownership_info":            map[string]any{"type": "string"},
			"mineral_rights_percentage": map[string]any{"type": "string"},
			"ownership_type":            map[string]any{"type": "string"},
			"record_type":               map[string]any{"type": "string"},
			"document_section":          map[string]any{"type": "string"},
			"notes":                     map[string]any{"type": "string"},
		},
		"anyOf": []map[string]any{
			{"required": []string{"name"}},
			{"required": []string{"company"}},
		},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"contacts": map[string]any{
				"type":  "array",
				"items": contact,
			},
		},
		"required": []string{"contacts"},
	}
}
