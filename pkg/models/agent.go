package models

// AgentKnowledge is the domain payload injected into an agent's invocation context.
type AgentKnowledge struct {
	// Facts are domain facts the agent should treat as given.
	Facts []string `yaml:"facts" json:"facts,omitempty"`
	// Regulations are building regulations and standards the agent must respect.
	Regulations []string `yaml:"regulations" json:"regulations,omitempty"`
	// BestPractices are trade best practices to apply.
	BestPractices []string `yaml:"best_practices" json:"best_practices,omitempty"`
}

// AIAgent describes a worker in the agent catalog.
// Agents are registered once at process start and are read-only thereafter.
type AIAgent struct {
	// ID is the unique identifier for this agent.
	ID string `yaml:"id" json:"id"`
	// Name is the human-readable name.
	Name string `yaml:"name" json:"name"`
	// Specialization is the trade or domain tag (e.g. "electrical").
	Specialization string `yaml:"specialization" json:"specialization"`
	// ProjectTypes lists the project types this agent serves.
	ProjectTypes []ProjectType `yaml:"project_types" json:"project_types"`
	// IsOrchestrator marks the top-level agent for a project type.
	IsOrchestrator bool `yaml:"is_orchestrator" json:"is_orchestrator"`
	// Optional agents may fail without failing the whole orchestration.
	Optional bool `yaml:"optional" json:"optional,omitempty"`
	// Dependencies lists agent IDs that must produce a response before
	// this agent is invoked.
	Dependencies []string `yaml:"dependencies" json:"dependencies,omitempty"`
	// Knowledge is injected into the invocation context.
	Knowledge AgentKnowledge `yaml:"knowledge" json:"knowledge,omitempty"`
}

// ServesType returns true if the agent serves the given project type.
func (a *AIAgent) ServesType(t ProjectType) bool {
	for _, pt := range a.ProjectTypes {
		if pt == t {
			return true
		}
	}
	return false
}

// AgentResponse is the output of one agent invocation. It is ephemeral:
// the orchestrator folds it into the draft document and discards it.
type AgentResponse struct {
	// AgentID identifies the responding agent.
	AgentID string `json:"agent_id"`
	// Content is the free-text body of the response.
	Content string `json:"content"`
	// Sections are the work sections contributed by this agent.
	Sections []Section `json:"sections,omitempty"`
	// Materials are the materials contributed by this agent.
	Materials []Material `json:"materials,omitempty"`
	// Labor are the labor requirements contributed by this agent.
	Labor []LaborRequirement `json:"labor,omitempty"`
	// FollowUpQuestions are questions the agent wants answered.
	FollowUpQuestions []string `json:"follow_up_questions,omitempty"`
	// Recommendations are free-text recommendations from the agent.
	Recommendations []string `json:"recommendations,omitempty"`
	// DependenciesMet lists the dependency agent IDs whose output this
	// response took into account.
	DependenciesMet []string `json:"dependencies_met,omitempty"`
}
