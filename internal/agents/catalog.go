package agents

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/renovatehq/sowgen/pkg/models"
)

// catalogFile is the on-disk shape of an agent catalog.
type catalogFile struct {
	Agents []models.AIAgent `yaml:"agents"`
}

// LoadCatalog reads an agent catalog from a YAML file and appends it to the
// default catalog. Catalog agents with an ID already present in the defaults
// replace the default entry.
func LoadCatalog(path string) ([]models.AIAgent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	merged := DefaultCatalog()
	index := make(map[string]int, len(merged))
	for i, a := range merged {
		index[a.ID] = i
	}
	for _, a := range file.Agents {
		if i, ok := index[a.ID]; ok {
			merged[i] = a
			continue
		}
		merged = append(merged, a)
	}
	return merged, nil
}

// DefaultCatalog returns the built-in agent catalog. Every supported project
// type has an orchestrator; the custom type always resolves.
func DefaultCatalog() []models.AIAgent {
	allTypes := []models.ProjectType{
		models.ProjectTypeKitchen, models.ProjectTypeBathroom,
		models.ProjectTypeExtension, models.ProjectTypeLoftConversion,
		models.ProjectTypeFullRenovation, models.ProjectTypeLandscaping,
		models.ProjectTypeCustom,
	}
	wetTypes := []models.ProjectType{
		models.ProjectTypeKitchen, models.ProjectTypeBathroom,
		models.ProjectTypeExtension, models.ProjectTypeFullRenovation,
		models.ProjectTypeCustom,
	}
	structuralTypes := []models.ProjectType{
		models.ProjectTypeExtension, models.ProjectTypeLoftConversion,
		models.ProjectTypeFullRenovation, models.ProjectTypeCustom,
	}

	return []models.AIAgent{
		{
			ID:             "kitchen-orchestrator",
			Name:           "Kitchen Project Orchestrator",
			Specialization: "kitchen",
			ProjectTypes:   []models.ProjectType{models.ProjectTypeKitchen},
			IsOrchestrator: true,
			Knowledge: models.AgentKnowledge{
				Facts: []string{
					"A typical kitchen refit takes 2-4 weeks on site.",
					"First fix (electrics, plumbing) happens before units are installed.",
				},
				BestPractices: []string{
					"Sequence: strip-out, first fix, plastering, units, worktops, second fix, decoration.",
				},
			},
		},
		{
			ID:             "bathroom-orchestrator",
			Name:           "Bathroom Project Orchestrator",
			Specialization: "bathroom",
			ProjectTypes:   []models.ProjectType{models.ProjectTypeBathroom},
			IsOrchestrator: true,
			Knowledge: models.AgentKnowledge{
				Facts: []string{"A typical bathroom refit takes 1-3 weeks on site."},
				Regulations: []string{
					"Electrical work in bathroom zones must comply with BS 7671 section 701.",
				},
			},
		},
		{
			ID:             "extension-orchestrator",
			Name:           "Extension Project Orchestrator",
			Specialization: "extension",
			ProjectTypes:   []models.ProjectType{models.ProjectTypeExtension},
			IsOrchestrator: true,
			Knowledge: models.AgentKnowledge{
				Regulations: []string{
					"Extensions require Building Regulations approval; many need planning permission.",
				},
			},
		},
		{
			ID:             "loft-orchestrator",
			Name:           "Loft Conversion Orchestrator",
			Specialization: "loft",
			ProjectTypes:   []models.ProjectType{models.ProjectTypeLoftConversion},
			IsOrchestrator: true,
			Knowledge: models.AgentKnowledge{
				Regulations: []string{
					"Habitable lofts need a protected stair and 2.0m min headroom over the stair.",
				},
			},
		},
		{
			ID:             "renovation-orchestrator",
			Name:           "Full Renovation Orchestrator",
			Specialization: "renovation",
			ProjectTypes:   []models.ProjectType{models.ProjectTypeFullRenovation},
			IsOrchestrator: true,
		},
		{
			ID:             "landscaping-orchestrator",
			Name:           "Landscaping Orchestrator",
			Specialization: "landscaping",
			ProjectTypes:   []models.ProjectType{models.ProjectTypeLandscaping},
			IsOrchestrator: true,
		},
		{
			ID:             "custom-orchestrator",
			Name:           "General Project Orchestrator",
			Specialization: "general",
			ProjectTypes:   []models.ProjectType{models.ProjectTypeCustom},
			IsOrchestrator: true,
			Knowledge: models.AgentKnowledge{
				BestPractices: []string{
					"Break unfamiliar projects into survey, enabling works, core works, finishes.",
				},
			},
		},
		{
			ID:             "structural-specialist",
			Name:           "Structural Engineer",
			Specialization: "structural",
			ProjectTypes:   structuralTypes,
			Knowledge: models.AgentKnowledge{
				Regulations: []string{
					"Load-bearing alterations need structural calculations for Building Control.",
				},
			},
		},
		{
			ID:             "electrical-specialist",
			Name:           "Electrical Specialist",
			Specialization: "electrical",
			ProjectTypes:   allTypes,
			Knowledge: models.AgentKnowledge{
				Regulations: []string{
					"Notifiable electrical work must be certified under Part P.",
				},
				BestPractices: []string{
					"Plan circuits before walls are closed up; retrofits cost far more.",
				},
			},
		},
		{
			ID:             "plumbing-specialist",
			Name:           "Plumbing & Heating Specialist",
			Specialization: "plumbing",
			ProjectTypes:   wetTypes,
			Knowledge: models.AgentKnowledge{
				Regulations: []string{
					"Gas appliance work requires a Gas Safe registered engineer.",
				},
			},
		},
		{
			ID:             "carpentry-specialist",
			Name:           "Carpentry & Joinery Specialist",
			Specialization: "carpentry",
			ProjectTypes:   allTypes,
		},
		{
			ID:             "plastering-specialist",
			Name:           "Plastering Specialist",
			Specialization: "plastering",
			ProjectTypes:   wetTypes,
			// Plastering follows first-fix trades.
			Dependencies: []string{"electrical-specialist", "plumbing-specialist"},
		},
		{
			ID:             "tiling-specialist",
			Name:           "Tiling Specialist",
			Specialization: "tiling",
			ProjectTypes: []models.ProjectType{
				models.ProjectTypeKitchen, models.ProjectTypeBathroom,
				models.ProjectTypeFullRenovation, models.ProjectTypeCustom,
			},
			Dependencies: []string{"plastering-specialist"},
		},
		{
			ID:             "decorating-specialist",
			Name:           "Decorating Specialist",
			Specialization: "decorating",
			ProjectTypes:   allTypes,
			Optional:       true,
			Dependencies:   []string{"plastering-specialist"},
		},
		{
			ID:             "groundworks-specialist",
			Name:           "Groundworks Specialist",
			Specialization: "groundworks",
			ProjectTypes: []models.ProjectType{
				models.ProjectTypeExtension, models.ProjectTypeLandscaping,
				models.ProjectTypeCustom,
			},
		},
	}
}
