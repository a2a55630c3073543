package llm

import "google.golang.org/genai"

const (
	suggestionsSchemaName = "video_suggestions"

	titlesDescription      = "List of 3 high-CTR viral titles."
	descriptionDescription = "A short, engaging video description."
)

// GetSuggestionsOutputSchema returns the JSON schema for title/description output
func GetSuggestionsOutputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"titles": map[string]any{
				"type":        "array",
				"description": titlesDescription,
				"items":       map[string]any{"type": "string"},
			},
			"description": map[string]any{
				"type":        "string",
				"description": descriptionDescription,
			},
		},
		"required":             []string{"titles", "description"},
		"additionalProperties": false,
	}
}

// suggestionsGeminiSchema is GetSuggestionsOutputSchema in Gemini's schema type
func suggestionsGeminiSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"titles": {
				Type:        genai.TypeArray,
				Description: titlesDescription,
				Items:       &genai.Schema{Type: genai.TypeString},
			},
			"description": {
				Type:        genai.TypeString,
				Description: descriptionDescription,
			},
		},
		Required: []string{"titles", "description"},
	}
}
