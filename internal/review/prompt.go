package review

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/renovatehq/sowgen/pkg/models"
)

// reviewSystemPrompt frames the reviewer as an experienced builder checking a
// scope of work for the given project type.
func reviewSystemPrompt(projectType models.ProjectType) string {
	var b strings.Builder
	b.WriteString("You are an experienced builder reviewing a scope of work for a ")
	b.WriteString(strings.ReplaceAll(string(projectType), "_", " "))
	b.WriteString(" project before it goes to the homeowner.\n\n")
	b.WriteString("Check for: missing work items, unrealistic specifications, ")
	b.WriteString("building-regulation problems, inaccurate cost estimates, and ")
	b.WriteString("schedule problems.\n\n")
	b.WriteString("Respond with a single JSON object:\n")
	b.WriteString(`{
  "issues": [
    {"severity": "critical|major|minor", "category": "missing_element|unrealistic_spec|regulatory|cost_accuracy|timeline", "location": "<section, material or task>", "description": "...", "impact": "..."}
  ],
  "recommendations": [
    {"priority": "high|medium|low", "issue": <1-based index into issues>, "suggestion": "...", "rationale": "..."}
  ]
}`)
	b.WriteString("\n\nReport no issues as empty arrays. Do not invent problems.")
	return b.String()
}

// reviewUserPrompt serializes the document and schedule for review.
func reviewUserPrompt(doc models.SoWDocument, chart models.GanttChart) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scope of work, version %d:\n", doc.Version)
	writeJSON(&b, doc)
	b.WriteString("\nSchedule:\n")
	writeJSON(&b, chart)
	return b.String()
}

func writeJSON(b *strings.Builder, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(b, "%+v\n", v)
		return
	}
	b.Write(data)
	b.WriteString("\n")
}
