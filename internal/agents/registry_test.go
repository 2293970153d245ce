package agents

import (
	"errors"
	"testing"

	"github.com/renovatehq/sowgen/pkg/models"
)

func TestRequiredAgentsKitchen(t *testing.T) {
	r, err := NewRegistry(DefaultCatalog())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	set, err := r.RequiredAgents(models.ProjectTypeKitchen)
	if err != nil {
		t.Fatalf("RequiredAgents: %v", err)
	}
	if set.Orchestrator == nil || set.Orchestrator.ID != "kitchen-orchestrator" {
		t.Fatalf("orchestrator = %+v, want kitchen-orchestrator", set.Orchestrator)
	}
	if len(set.Specialists) == 0 {
		t.Fatal("expected at least one specialist for kitchen")
	}
	for _, s := range set.Specialists {
		if s.IsOrchestrator {
			t.Errorf("specialist list contains orchestrator %s", s.ID)
		}
	}
}

func TestRequiredAgentsUnknownType(t *testing.T) {
	r, err := NewRegistry([]models.AIAgent{
		{ID: "custom-orchestrator", IsOrchestrator: true, ProjectTypes: []models.ProjectType{models.ProjectTypeCustom}},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if _, err := r.RequiredAgents(models.ProjectTypeKitchen); !errors.Is(err, ErrUnknownProjectType) {
		t.Errorf("error = %v, want ErrUnknownProjectType", err)
	}
}

func TestCustomTypeAlwaysResolves(t *testing.T) {
	r, err := NewRegistry(DefaultCatalog())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	set, err := r.RequiredAgents(models.ProjectTypeCustom)
	if err != nil {
		t.Fatalf("custom type must resolve, got %v", err)
	}
	if set.Orchestrator.ID != "custom-orchestrator" {
		t.Errorf("orchestrator = %s, want custom-orchestrator", set.Orchestrator.ID)
	}
}

func TestHas(t *testing.T) {
	r, err := NewRegistry(DefaultCatalog())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if !r.Has(models.ProjectTypeKitchen) {
		t.Error("Has(kitchen) = false, want true")
	}
	if r.Has(models.ProjectType("garage")) {
		t.Error("Has(garage) = true, want false")
	}
	if r.Count() != len(DefaultCatalog()) {
		t.Errorf("Count() = %d, want %d", r.Count(), len(DefaultCatalog()))
	}
}

func TestAgentNotFound(t *testing.T) {
	r, _ := NewRegistry(DefaultCatalog())

	if _, err := r.Agent("no-such-agent"); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("error = %v, want ErrAgentNotFound", err)
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]models.AIAgent{
		{ID: "dup"},
		{ID: "dup"},
	})
	if err == nil {
		t.Error("expected error for duplicate agent ids")
	}
}

func TestNewRegistryRejectsUnknownDependency(t *testing.T) {
	_, err := NewRegistry([]models.AIAgent{
		{ID: "a", Dependencies: []string{"ghost"}},
	})
	if err == nil {
		t.Error("expected error for unknown dependency")
	}
}

func TestDefaultCatalogDependenciesResolve(t *testing.T) {
	if _, err := NewRegistry(DefaultCatalog()); err != nil {
		t.Fatalf("default catalog should build a valid registry: %v", err)
	}
}
