// Package orchestrator coordinates agents to produce a draft scope-of-work.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/renovatehq/sowgen/internal/agents"
	"github.com/renovatehq/sowgen/internal/graph"
	"github.com/renovatehq/sowgen/pkg/models"
)

// ErrOrchestrationIncomplete indicates a required agent never produced a
// response after retries. No partial document is returned in that case.
var ErrOrchestrationIncomplete = errors.New("orchestration incomplete")

// Invoker invokes a single agent. agents.Invoker implements it; tests
// substitute a stub.
type Invoker interface {
	Invoke(ctx context.Context, agentID string, ic agents.InvocationContext) (*models.AgentResponse, error)
}

// Orchestrator resolves the required agent set for a project and invokes
// the agents in dependency order, fanning out agents whose dependencies
// are all satisfied.
type Orchestrator struct {
	registry *agents.Registry
	invoker  Invoker
}

// New creates an Orchestrator over the given registry and invoker.
func New(registry *agents.Registry, invoker Invoker) *Orchestrator {
	return &Orchestrator{registry: registry, invoker: invoker}
}

// GenerateInput carries everything one generation pass needs.
type GenerateInput struct {
	// Context is the immutable project input.
	Context models.ProjectContext
	// Instructions carries modification directives for regeneration passes.
	Instructions string
}

// Generate runs a full orchestration pass and returns the aggregated draft
// document plus the IDs of every agent that contributed. The draft's costs
// are not yet computed; that is the classifier's job.
func (o *Orchestrator) Generate(ctx context.Context, in GenerateInput) (models.SoWDocument, []string, error) {
	set, err := o.registry.RequiredAgents(in.Context.Type)
	if err != nil {
		return models.SoWDocument{}, nil, err
	}

	members := make(map[string]*models.AIAgent, len(set.Specialists)+1)
	for _, a := range set.All() {
		members[a.ID] = a
	}

	// Dependency edges outside the selected set are dropped: a specialist can
	// declare a dependency on a trade that simply isn't needed for this
	// project type.
	g := graph.New()
	for _, a := range set.All() {
		var deps []string
		for _, depID := range a.Dependencies {
			if _, ok := members[depID]; ok {
				deps = append(deps, depID)
			}
		}
		g.Add(a.ID, deps)
	}
	if err := g.Validate(); err != nil {
		return models.SoWDocument{}, nil, fmt.Errorf("agent dependency graph: %w", err)
	}

	var (
		mu        sync.Mutex
		responses = make(map[string]*models.AgentResponse, len(members))
		skipped   = make(map[string]bool)
	)

	for !g.Done() {
		ready := g.Ready()
		if len(ready) == 0 {
			// Cannot happen for a validated acyclic graph.
			return models.SoWDocument{}, nil, fmt.Errorf("%w: no dispatchable agents remain", ErrOrchestrationIncomplete)
		}

		log.Printf("[orchestrator] dispatching batch of %d agents: %v", len(ready), ready)

		var wg sync.WaitGroup
		batchErrs := make([]error, len(ready))
		for i, agentID := range ready {
			wg.Add(1)
			go func(i int, agentID string) {
				defer wg.Done()

				ic := agents.InvocationContext{
					Project:      in.Context,
					Instructions: in.Instructions,
				}
				mu.Lock()
				for _, depID := range g.Dependencies(agentID) {
					if resp, ok := responses[depID]; ok {
						ic.Prior = append(ic.Prior, *resp)
					}
				}
				mu.Unlock()

				resp, err := o.invoker.Invoke(ctx, agentID, ic)
				if err != nil {
					batchErrs[i] = err
					return
				}

				mu.Lock()
				responses[agentID] = resp
				mu.Unlock()
			}(i, agentID)
		}
		wg.Wait()

		for i, agentID := range ready {
			err := batchErrs[i]
			if err == nil {
				g.MarkComplete(agentID)
				continue
			}
			agent := members[agentID]
			if agent.Optional {
				// Optional agents may fail; dependents proceed without their output.
				log.Printf("[orchestrator] optional agent %s failed, continuing: %v", agentID, err)
				mu.Lock()
				skipped[agentID] = true
				mu.Unlock()
				g.MarkComplete(agentID)
				continue
			}
			return models.SoWDocument{}, nil, fmt.Errorf("%w: agent %s: %v", ErrOrchestrationIncomplete, agentID, err)
		}
	}

	// Fold responses in deterministic catalog order: orchestrator first,
	// then specialists as declared.
	var (
		ordered    []models.AgentResponse
		agentsUsed []string
	)
	for _, a := range set.All() {
		if resp, ok := responses[a.ID]; ok {
			ordered = append(ordered, *resp)
			agentsUsed = append(agentsUsed, a.ID)
		}
	}

	doc := Aggregate(in.Context.ProjectID, ordered)
	log.Printf("[orchestrator] aggregated draft: %d sections, %d materials, %d labor entries (%d agents, %d skipped)",
		len(doc.Sections), len(doc.Materials), len(doc.Labor), len(agentsUsed), len(skipped))

	return doc, agentsUsed, nil
}
