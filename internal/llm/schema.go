package llm

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) for the
// basics-stage object. It is used locally to gate the strict decode; nothing
// is sent to the model beyond the prompt.
func BuildInvoiceJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"serial": nullableProp("string"),
			"date": map[string]any{
				"type":    []string{"string", "null"},
				"pattern": `^\d{4}-\d{2}-\d{2}$`,
			},
			"amount": map[string]any{"type": "number"},
			"type":   map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"amount", "type"},
	}
}

// BuildItemsJSONSchema returns the schema for the items-stage array.
func BuildItemsJSONSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"name":          map[string]any{"type": "string", "minLength": 1},
				"specification": nullableProp("string"),
				"unit":          nullableProp("string"),
				"quantity":      nullableProp("number"),
				"pretax":        map[string]any{"type": "number"},
				"tax":           map[string]any{"type": "number"},
			},
			"required": []string{"name", "pretax", "tax"},
		},
	}
}

func nullableProp(typ string) map[string]any {
	return map[string]any{"type": []string{typ, "null"}}
}
