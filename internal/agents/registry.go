// Package agents holds the worker catalog, lookup, and invocation machinery.
package agents

import (
	"fmt"

	"github.com/renovatehq/sowgen/pkg/models"
)

// AgentSet is the worker set required for one project type.
type AgentSet struct {
	// Orchestrator is the top-level agent for the project type.
	Orchestrator *models.AIAgent
	// Specialists are the trade agents, in catalog order.
	Specialists []*models.AIAgent
}

// All returns the orchestrator followed by the specialists.
func (s AgentSet) All() []*models.AIAgent {
	out := make([]*models.AIAgent, 0, len(s.Specialists)+1)
	out = append(out, s.Orchestrator)
	out = append(out, s.Specialists...)
	return out
}

// Registry is the read-only agent catalog, indexed by ID and project type.
// It is populated once at startup and is safe for unsynchronized concurrent
// reads afterwards.
type Registry struct {
	// byID maps agent ID to its descriptor.
	byID map[string]*models.AIAgent
	// order preserves catalog registration order.
	order []string
}

// NewRegistry creates a registry from the given catalog. Duplicate IDs are
// rejected. The returned registry must not be mutated after creation.
func NewRegistry(catalog []models.AIAgent) (*Registry, error) {
	r := &Registry{byID: make(map[string]*models.AIAgent, len(catalog))}
	for i := range catalog {
		a := catalog[i]
		if a.ID == "" {
			return nil, fmt.Errorf("agent %q has no id", a.Name)
		}
		if _, dup := r.byID[a.ID]; dup {
			return nil, fmt.Errorf("duplicate agent id %q", a.ID)
		}
		r.byID[a.ID] = &a
		r.order = append(r.order, a.ID)
	}

	// Dependencies must reference registered agents.
	for _, id := range r.order {
		for _, depID := range r.byID[id].Dependencies {
			if _, ok := r.byID[depID]; !ok {
				return nil, fmt.Errorf("agent %s depends on unknown agent %s", id, depID)
			}
		}
	}
	return r, nil
}

// Agent returns the descriptor for the given ID.
// Returns ErrAgentNotFound for unregistered IDs.
func (r *Registry) Agent(id string) (*models.AIAgent, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return a, nil
}

// RequiredAgents returns the orchestrator and specialists for a project type.
// Returns ErrUnknownProjectType when no orchestrator serves the type. The
// custom type always resolves because the default catalog registers a custom
// orchestrator.
func (r *Registry) RequiredAgents(t models.ProjectType) (AgentSet, error) {
	var set AgentSet
	for _, id := range r.order {
		a := r.byID[id]
		if !a.ServesType(t) {
			continue
		}
		if a.IsOrchestrator {
			if set.Orchestrator == nil {
				set.Orchestrator = a
			}
			continue
		}
		set.Specialists = append(set.Specialists, a)
	}
	if set.Orchestrator == nil {
		return AgentSet{}, fmt.Errorf("%w: %s", ErrUnknownProjectType, t)
	}
	return set, nil
}

// Has returns true if an orchestrator is registered for the project type.
func (r *Registry) Has(t models.ProjectType) bool {
	_, err := r.RequiredAgents(t)
	return err == nil
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	return len(r.byID)
}
