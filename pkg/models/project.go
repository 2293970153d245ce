// Package models holds the shared data types for scope-of-work generation.
package models

// ProjectType classifies a renovation project.
type ProjectType string

const (
	// ProjectTypeKitchen is a kitchen renovation.
	ProjectTypeKitchen ProjectType = "kitchen"
	// ProjectTypeBathroom is a bathroom renovation.
	ProjectTypeBathroom ProjectType = "bathroom"
	// ProjectTypeExtension is a single or double storey extension.
	ProjectTypeExtension ProjectType = "extension"
	// ProjectTypeLoftConversion is a loft conversion.
	ProjectTypeLoftConversion ProjectType = "loft_conversion"
	// ProjectTypeFullRenovation is a whole-property renovation.
	ProjectTypeFullRenovation ProjectType = "full_renovation"
	// ProjectTypeLandscaping is garden and external works.
	ProjectTypeLandscaping ProjectType = "landscaping"
	// ProjectTypeCustom covers anything the fixed types don't.
	ProjectTypeCustom ProjectType = "custom"
)

// Valid returns true if the project type is a known value.
func (t ProjectType) Valid() bool {
	switch t {
	case ProjectTypeKitchen, ProjectTypeBathroom, ProjectTypeExtension,
		ProjectTypeLoftConversion, ProjectTypeFullRenovation,
		ProjectTypeLandscaping, ProjectTypeCustom:
		return true
	default:
		return false
	}
}

// ProjectContext is the immutable project input supplied by the
// questionnaire layer. Pipeline stages never modify it; modification passes
// derive a new context via WithResponses.
type ProjectContext struct {
	// ProjectID identifies the project across jobs and document versions.
	ProjectID string `json:"project_id"`
	// Type classifies the project.
	Type ProjectType `json:"type"`
	// Description is the homeowner's free-text summary of the work.
	Description string `json:"description,omitempty"`
	// PropertyFacts holds facts about the property (age, construction,
	// access) keyed by fact name.
	PropertyFacts map[string]string `json:"property_facts,omitempty"`
	// UserResponses holds questionnaire answers keyed by question id.
	UserResponses map[string]string `json:"user_responses,omitempty"`
}

// WithResponses returns a copy of the context with the given answers merged
// over the existing ones. The receiver is not modified.
func (c ProjectContext) WithResponses(responses map[string]string) ProjectContext {
	out := c
	out.UserResponses = make(map[string]string, len(c.UserResponses)+len(responses))
	for k, v := range c.UserResponses {
		out.UserResponses[k] = v
	}
	for k, v := range responses {
		out.UserResponses[k] = v
	}
	return out
}
