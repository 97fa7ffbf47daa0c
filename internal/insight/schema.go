package insight

// Type names follow the OpenAPI subset model providers accept.
const (
	TypeArray  = "array"
	TypeObject = "object"
	TypeString = "string"
)

// Schema is a provider-neutral description of the required response shape.
// Generators translate it into their own schema type.
type Schema struct {
	Type        string
	Description string
	Items       *Schema
	Properties  map[string]*Schema
	Required    []string
	// PropertyOrdering keeps generated objects in a stable key order.
	PropertyOrdering []string
}

// ResponseSchema is the fixed shape every analysis response must match:
// an array of {sourceName, suggestions[], cleaningSteps[]}, all required.
func ResponseSchema() *Schema {
	return &Schema{
		Type: TypeArray,
		Items: &Schema{
			Type: TypeObject,
			Properties: map[string]*Schema{
				"sourceName": {
					Type:        TypeString,
					Description: "The file name exactly as given in the summary.",
				},
				"suggestions": {
					Type:        TypeArray,
					Items:       &Schema{Type: TypeString},
					Description: "3 to 5 actionable analysis suggestions or business questions.",
				},
				"cleaningSteps": {
					Type:        TypeArray,
					Items:       &Schema{Type: TypeString},
					Description: "Data cleaning steps to consider before analysis (e.g. handle missing values, fix formats).",
				},
			},
			Required:         []string{"sourceName", "suggestions", "cleaningSteps"},
			PropertyOrdering: []string{"sourceName", "suggestions", "cleaningSteps"},
		},
	}
}
