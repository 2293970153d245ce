package agents

import (
	"fmt"
	"sort"
	"strings"

	"github.com/renovatehq/sowgen/pkg/models"
)

// systemPrompt builds the system prompt for an agent, injecting its
// knowledge payload.
func systemPrompt(agent *models.AIAgent) string {
	var sb strings.Builder

	if agent.IsOrchestrator {
		fmt.Fprintf(&sb, "You are %s, the lead planner for %s projects. ", agent.Name, agent.Specialization)
		sb.WriteString("You produce the overall work breakdown for a residential renovation scope of work.\n")
	} else {
		fmt.Fprintf(&sb, "You are %s, a %s trade specialist. ", agent.Name, agent.Specialization)
		sb.WriteString("You contribute your trade's sections, materials and labor to a residential renovation scope of work.\n")
	}

	writeList := func(heading string, items []string) {
		if len(items) == 0 {
			return
		}
		sb.WriteString("\n" + heading + "\n")
		for _, item := range items {
			sb.WriteString("- " + item + "\n")
		}
	}
	writeList("Facts:", agent.Knowledge.Facts)
	writeList("Regulations you must respect:", agent.Knowledge.Regulations)
	writeList("Best practices:", agent.Knowledge.BestPractices)

	sb.WriteString(`
Respond with a single JSON object and nothing else:
{
  "summary": "one paragraph summary",
  "sections": [{"title": "...", "description": "...", "specifications": ["..."], "depends_on": ["section title"]}],
  "materials": [{"name": "...", "quantity": 0, "unit": "...", "estimated_cost": 0}],
  "labor": [{"trade": "...", "description": "...", "person_days": 0, "qualifications": ["..."], "section": "section title", "parallel": false}],
  "follow_up_questions": ["..."],
  "recommendations": ["..."]
}
Costs are in GBP. Durations are person-days. Mark labor "parallel" only when it
can genuinely overlap other trades working in the same area.`)

	return sb.String()
}

// userPrompt builds the per-invocation prompt from the project context and
// any dependency responses.
func userPrompt(agent *models.AIAgent, ic InvocationContext) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Project type: %s\n", ic.Project.Type)
	if ic.Project.Description != "" {
		fmt.Fprintf(&sb, "Project description: %s\n", ic.Project.Description)
	}

	if len(ic.Project.PropertyFacts) > 0 {
		sb.WriteString("\nProperty:\n")
		for _, k := range sortedKeys(ic.Project.PropertyFacts) {
			fmt.Fprintf(&sb, "- %s: %s\n", k, ic.Project.PropertyFacts[k])
		}
	}

	if len(ic.Project.UserResponses) > 0 {
		sb.WriteString("\nHomeowner answers:\n")
		for _, k := range sortedKeys(ic.Project.UserResponses) {
			fmt.Fprintf(&sb, "- %s: %s\n", k, ic.Project.UserResponses[k])
		}
	}

	if len(ic.Prior) > 0 {
		sb.WriteString("\nOutput from trades you depend on:\n")
		for _, prior := range ic.Prior {
			fmt.Fprintf(&sb, "\n[%s]\n%s\n", prior.AgentID, prior.Content)
		}
	}

	if ic.Instructions != "" {
		sb.WriteString("\nAdditional instructions for this pass:\n")
		sb.WriteString(ic.Instructions + "\n")
	}

	if agent.IsOrchestrator {
		sb.WriteString("\nProduce the overall work breakdown for this project.")
	} else {
		fmt.Fprintf(&sb, "\nProduce the %s scope for this project.", agent.Specialization)
	}

	return sb.String()
}

// sortedKeys returns map keys in sorted order for stable prompts.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
