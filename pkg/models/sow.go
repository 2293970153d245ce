package models

import "time"

// MaterialCategory indicates who sources a material.
type MaterialCategory string

const (
	// MaterialHomeownerProvided covers fixtures and fittings the homeowner
	// customarily chooses and buys (tiles, sanitaryware, appliances).
	MaterialHomeownerProvided MaterialCategory = "homeowner_provided"
	// MaterialBuilderProvided covers consumables and fixings the trade
	// customarily sources (cement, screws, cabling, adhesive).
	MaterialBuilderProvided MaterialCategory = "builder_provided"
)

// Valid returns true if the category is a known value.
func (c MaterialCategory) Valid() bool {
	return c == MaterialHomeownerProvided || c == MaterialBuilderProvided
}

// Section is one ordered unit of work in a scope-of-work document.
type Section struct {
	// ID is the section identifier, assigned during aggregation.
	ID string `json:"id"`
	// Title is the section heading. Sections are deduplicated by title.
	Title string `json:"title"`
	// Description explains the work covered by this section.
	Description string `json:"description,omitempty"`
	// Specifications are the bullet-point requirements for the section.
	Specifications []string `json:"specifications,omitempty"`
	// DependsOn lists section IDs that must be finished first.
	DependsOn []string `json:"depends_on,omitempty"`
}

// Material is one line item in the materials list.
type Material struct {
	// Name is the material name. Materials are merged by name.
	Name string `json:"name"`
	// Category records who provides the material.
	Category MaterialCategory `json:"category"`
	// Quantity is the amount required, in Unit.
	Quantity float64 `json:"quantity"`
	// Unit is the unit of measure (m2, each, bag).
	Unit string `json:"unit,omitempty"`
	// EstimatedCost is the estimated total cost for this line in GBP.
	EstimatedCost float64 `json:"estimated_cost"`
}

// LaborRequirement is one trade's labor line in the document.
type LaborRequirement struct {
	// Trade is the trade performing the work (electrician, plumber).
	Trade string `json:"trade"`
	// Description summarises the work.
	Description string `json:"description"`
	// PersonDays is the effort estimate in whole or fractional days.
	PersonDays float64 `json:"person_days"`
	// EstimatedCost is person-days multiplied by the trade day rate.
	EstimatedCost float64 `json:"estimated_cost"`
	// Qualifications lists required certifications (Part P, Gas Safe).
	Qualifications []string `json:"qualifications,omitempty"`
	// SectionID links the labor back to the section it arises from.
	SectionID string `json:"section_id,omitempty"`
	// CanRunInParallel indicates the work may overlap with sibling tasks
	// that have no precedence relation to it.
	CanRunInParallel bool `json:"can_run_in_parallel,omitempty"`
}

// EstimatedCosts is the cost summary of a document.
// Invariant: TotalEstimate == LaborCosts + MaterialCosts and
// MaterialCosts == BuilderMaterials + HomeownerMaterials.
type EstimatedCosts struct {
	// TotalEstimate is the overall estimate in GBP.
	TotalEstimate float64 `json:"total_estimate"`
	// LaborCosts is the labor subtotal.
	LaborCosts float64 `json:"labor_costs"`
	// MaterialCosts is the material subtotal across both providers.
	MaterialCosts float64 `json:"material_costs"`
	// BuilderMaterials is the builder-provided material subtotal.
	BuilderMaterials float64 `json:"builder_materials"`
	// HomeownerMaterials is the homeowner-provided material subtotal.
	HomeownerMaterials float64 `json:"homeowner_materials"`
}

// SoWDocument is the scope-of-work produced by a generation pass.
type SoWDocument struct {
	// ID is the unique identifier for this document version.
	ID string `json:"id"`
	// ProjectID is the project this document belongs to.
	ProjectID string `json:"project_id"`
	// Sections is the ordered work breakdown.
	Sections []Section `json:"sections"`
	// Materials is the consolidated materials list.
	Materials []Material `json:"materials"`
	// Labor is the consolidated labor requirements list.
	Labor []LaborRequirement `json:"labor"`
	// Costs is the computed cost summary.
	Costs EstimatedCosts `json:"estimated_costs"`
	// Version starts at 1 and increments by exactly 1 per regeneration.
	Version int `json:"version"`
	// GeneratedAt is when this version was produced.
	GeneratedAt time.Time `json:"generated_at"`
}

// SectionByID returns the section with the given ID, or nil.
func (d *SoWDocument) SectionByID(id string) *Section {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return &d.Sections[i]
		}
	}
	return nil
}
