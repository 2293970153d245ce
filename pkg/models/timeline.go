package models

// TimelineTask is one schedulable unit in the project timeline.
type TimelineTask struct {
	// ID is the unique task identifier.
	ID string `json:"id"`
	// Name is the human-readable task name.
	Name string `json:"name"`
	// Trade is the trade assigned to the task.
	Trade string `json:"trade"`
	// Duration is the task duration in whole days.
	Duration int `json:"duration"`
	// DependsOn lists predecessor task IDs. The predecessor graph must be acyclic.
	DependsOn []string `json:"depends_on,omitempty"`
	// CanRunInParallel allows overlap with sibling tasks that have no
	// precedence relation. Non-parallel tasks sharing a trade are serialized.
	CanRunInParallel bool `json:"can_run_in_parallel"`
	// StartDay is the computed earliest start offset in days from project start.
	StartDay int `json:"start_day"`
	// EndDay is the computed finish offset (StartDay + Duration).
	EndDay int `json:"end_day"`
}

// GanttChart is the scheduled view of a scope-of-work.
// It is immutable once produced; a regeneration produces a new chart.
type GanttChart struct {
	// ID is the unique identifier for this chart.
	ID string `json:"id"`
	// ProjectID is the project this chart belongs to.
	ProjectID string `json:"project_id"`
	// Tasks is the ordered task list with computed offsets.
	Tasks []TimelineTask `json:"tasks"`
	// CriticalPath is the ordered task ID sequence whose combined duration
	// equals TotalDuration.
	CriticalPath []string `json:"critical_path"`
	// TotalDuration is the length in days of the longest path through the
	// precedence graph.
	TotalDuration int `json:"total_duration"`
}

// TaskByID returns the task with the given ID, or nil.
func (g *GanttChart) TaskByID(id string) *TimelineTask {
	for i := range g.Tasks {
		if g.Tasks[i].ID == id {
			return &g.Tasks[i]
		}
	}
	return nil
}
