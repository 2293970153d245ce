package orchestrator

import (
	"testing"

	"github.com/renovatehq/sowgen/pkg/models"
)

func TestAggregateDeduplicatesSectionsByTitle(t *testing.T) {
	responses := []models.AgentResponse{
		{
			AgentID: "a",
			Sections: []models.Section{
				{Title: "Strip out", Description: "Remove old units", Specifications: []string{"skip hire"}},
			},
		},
		{
			AgentID: "b",
			Sections: []models.Section{
				{Title: "strip out", Specifications: []string{"skip hire", "protect floors"}},
				{Title: "First fix", DependsOn: []string{"Strip out"}},
			},
		},
	}

	doc := Aggregate("p1", responses)

	if len(doc.Sections) != 2 {
		t.Fatalf("sections = %d, want 2 (deduplicated)", len(doc.Sections))
	}
	strip := doc.Sections[0]
	if strip.ID != "s1" || strip.Description != "Remove old units" {
		t.Errorf("first section = %+v", strip)
	}
	if len(strip.Specifications) != 2 {
		t.Errorf("specifications = %v, want merged unique list", strip.Specifications)
	}

	first := doc.Sections[1]
	if len(first.DependsOn) != 1 || first.DependsOn[0] != "s1" {
		t.Errorf("DependsOn = %v, want resolved to [s1]", first.DependsOn)
	}
}

func TestAggregateMergesMaterialsAndLabor(t *testing.T) {
	responses := []models.AgentResponse{
		{
			AgentID:   "a",
			Materials: []models.Material{{Name: "Plasterboard", Quantity: 10, Unit: "sheet", EstimatedCost: 120}},
			Labor:     []models.LaborRequirement{{Trade: "plasterer", Description: "skim walls", PersonDays: 2}},
		},
		{
			AgentID:   "b",
			Materials: []models.Material{{Name: "plasterboard", Quantity: 5, Unit: "sheet", EstimatedCost: 60}},
			Labor: []models.LaborRequirement{
				{Trade: "plasterer", Description: "skim walls", PersonDays: 1, Qualifications: []string{"CSCS"}},
				{Trade: "electrician", Description: "second fix", PersonDays: 1},
			},
		},
	}

	doc := Aggregate("p1", responses)

	if len(doc.Materials) != 1 {
		t.Fatalf("materials = %d, want 1 (merged)", len(doc.Materials))
	}
	if doc.Materials[0].Quantity != 15 || doc.Materials[0].EstimatedCost != 180 {
		t.Errorf("merged material = %+v", doc.Materials[0])
	}

	if len(doc.Labor) != 2 {
		t.Fatalf("labor = %d, want 2", len(doc.Labor))
	}
	if doc.Labor[0].PersonDays != 3 {
		t.Errorf("merged person days = %v, want 3", doc.Labor[0].PersonDays)
	}
	if len(doc.Labor[0].Qualifications) != 1 {
		t.Errorf("qualifications = %v, want merged", doc.Labor[0].Qualifications)
	}
}

func TestAggregateResolvesLaborSectionRefs(t *testing.T) {
	responses := []models.AgentResponse{
		{
			AgentID:  "a",
			Sections: []models.Section{{Title: "Electrical first fix"}},
			Labor: []models.LaborRequirement{
				{Trade: "electrician", Description: "wiring", PersonDays: 2, SectionID: "Electrical first fix"},
				{Trade: "electrician", Description: "testing", PersonDays: 1, SectionID: "Unknown section"},
			},
		},
	}

	doc := Aggregate("p1", responses)

	if doc.Labor[0].SectionID != "s1" {
		t.Errorf("SectionID = %q, want s1", doc.Labor[0].SectionID)
	}
	if doc.Labor[1].SectionID != "" {
		t.Errorf("unresolvable section ref should be dropped, got %q", doc.Labor[1].SectionID)
	}
}

func TestAggregateIdentity(t *testing.T) {
	doc := Aggregate("p1", nil)
	if doc.Version != 0 {
		t.Errorf("Version = %d, want 0 until the store assigns one", doc.Version)
	}
	if doc.ProjectID != "p1" || doc.ID == "" {
		t.Errorf("doc identity = %+v", doc)
	}
}
