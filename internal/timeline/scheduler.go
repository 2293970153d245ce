// Package timeline builds the project schedule from a scope-of-work using
// the critical-path method.
package timeline

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/renovatehq/sowgen/internal/graph"
	"github.com/renovatehq/sowgen/pkg/models"
)

// ErrCyclicDependency indicates a cycle in the task precedence graph.
// A well-formed draft never produces one; it is a fatal internal error,
// not a user-facing condition.
var ErrCyclicDependency = graph.ErrCycleDetected

// BuildTasks converts a document's labor requirements into timeline tasks.
// Precedence edges come from section dependencies: every task in a section
// waits for every task in the sections it depends on.
func BuildTasks(doc models.SoWDocument) []models.TimelineTask {
	bySection := make(map[string][]string) // section ID -> task IDs
	tasks := make([]models.TimelineTask, 0, len(doc.Labor))

	for i, l := range doc.Labor {
		id := fmt.Sprintf("t%d", i+1)
		duration := int(math.Ceil(l.PersonDays))
		if duration < 1 {
			duration = 1
		}
		tasks = append(tasks, models.TimelineTask{
			ID:               id,
			Name:             taskName(l),
			Trade:            l.Trade,
			Duration:         duration,
			CanRunInParallel: l.CanRunInParallel,
		})
		if l.SectionID != "" {
			bySection[l.SectionID] = append(bySection[l.SectionID], id)
		}
	}

	for i, l := range doc.Labor {
		if l.SectionID == "" {
			continue
		}
		section := doc.SectionByID(l.SectionID)
		if section == nil {
			continue
		}
		for _, depSection := range section.DependsOn {
			for _, depTask := range bySection[depSection] {
				tasks[i].DependsOn = append(tasks[i].DependsOn, depTask)
			}
		}
	}

	return tasks
}

// taskName builds a readable task name from a labor entry.
func taskName(l models.LaborRequirement) string {
	if l.Description == "" {
		return l.Trade
	}
	return fmt.Sprintf("%s: %s", l.Trade, l.Description)
}

// Schedule computes start and finish offsets for every task and derives the
// total duration and critical path. Tasks are processed in a deterministic
// topological order; ties are broken by declaration order.
//
// Scheduling rules:
//   - start(t) = max(finish(p)) over predecessors, 0 with none
//   - a task not flagged CanRunInParallel is additionally serialized behind
//     every earlier same-trade task (trade-capacity constraint)
//   - the critical path is the longest root-to-sink path
func Schedule(projectID string, tasks []models.TimelineTask) (models.GanttChart, error) {
	g := graph.New()
	byID := make(map[string]*models.TimelineTask, len(tasks))
	for i := range tasks {
		g.Add(tasks[i].ID, tasks[i].DependsOn)
		byID[tasks[i].ID] = &tasks[i]
	}
	if err := g.Validate(); err != nil {
		return models.GanttChart{}, fmt.Errorf("task precedence graph: %w", err)
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return models.GanttChart{}, fmt.Errorf("task precedence graph: %w", err)
	}

	start := make(map[string]int, len(tasks))
	finish := make(map[string]int, len(tasks))
	// binding records the task whose finish determined each task's start,
	// used to reconstruct the critical path.
	binding := make(map[string]string, len(tasks))
	var scheduled []string

	for _, id := range order {
		task := byID[id]

		s := 0
		for _, predID := range task.DependsOn {
			if finish[predID] > s {
				s = finish[predID]
				binding[id] = predID
			}
		}

		if !task.CanRunInParallel {
			for _, prevID := range scheduled {
				if !sameTrade(byID[prevID].Trade, task.Trade) {
					continue
				}
				if finish[prevID] > s {
					s = finish[prevID]
					binding[id] = prevID
				}
			}
		}

		start[id] = s
		finish[id] = s + task.Duration
		scheduled = append(scheduled, id)
	}

	total := 0
	for _, id := range order {
		if finish[id] > total {
			total = finish[id]
		}
	}

	chart := models.GanttChart{
		ID:            uuid.New().String(),
		ProjectID:     projectID,
		TotalDuration: total,
		Tasks:         make([]models.TimelineTask, 0, len(tasks)),
	}
	// Annotate tasks in declaration order.
	for i := range tasks {
		t := tasks[i]
		t.StartDay = start[t.ID]
		t.EndDay = finish[t.ID]
		chart.Tasks = append(chart.Tasks, t)
	}
	chart.CriticalPath = criticalPath(tasks, finish, binding, total)

	log.Printf("[timeline] scheduled %d tasks, total %d days, critical path %s",
		len(tasks), total, strings.Join(chart.CriticalPath, " -> "))
	return chart, nil
}

// criticalPath walks the binding chain back from the earliest-declared sink
// whose finish equals the total duration.
func criticalPath(tasks []models.TimelineTask, finish map[string]int, binding map[string]string, total int) []string {
	if total == 0 {
		return nil
	}

	var sink string
	for i := range tasks {
		if finish[tasks[i].ID] == total {
			sink = tasks[i].ID
			break
		}
	}

	var reversed []string
	for id := sink; id != ""; id = binding[id] {
		reversed = append(reversed, id)
	}

	path := make([]string, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}

// sameTrade compares trades case-insensitively.
func sameTrade(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
