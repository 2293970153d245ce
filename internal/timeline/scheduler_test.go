package timeline

import (
	"errors"
	"testing"

	"github.com/renovatehq/sowgen/pkg/models"
)

func TestCriticalPathTextbookCase(t *testing.T) {
	// A(2d) -> B(3d), A -> C(1d, parallel), {B,C} -> D(2d).
	tasks := []models.TimelineTask{
		{ID: "A", Name: "A", Trade: "builder", Duration: 2},
		{ID: "B", Name: "B", Trade: "builder", Duration: 3, DependsOn: []string{"A"}},
		{ID: "C", Name: "C", Trade: "builder", Duration: 1, DependsOn: []string{"A"}, CanRunInParallel: true},
		{ID: "D", Name: "D", Trade: "builder", Duration: 2, DependsOn: []string{"B", "C"}},
	}

	chart, err := Schedule("p1", tasks)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if chart.TotalDuration != 7 {
		t.Errorf("TotalDuration = %d, want 7", chart.TotalDuration)
	}
	want := []string{"A", "B", "D"}
	if len(chart.CriticalPath) != len(want) {
		t.Fatalf("CriticalPath = %v, want %v", chart.CriticalPath, want)
	}
	for i, id := range want {
		if chart.CriticalPath[i] != id {
			t.Fatalf("CriticalPath = %v, want %v", chart.CriticalPath, want)
		}
	}

	c := chart.TaskByID("C")
	if c.StartDay != 2 || c.EndDay != 3 {
		t.Errorf("C scheduled [%d,%d], want [2,3] overlapping B", c.StartDay, c.EndDay)
	}
}

func TestForwardPassOffsets(t *testing.T) {
	tasks := []models.TimelineTask{
		{ID: "t1", Trade: "electrician", Duration: 2},
		{ID: "t2", Trade: "plumber", Duration: 3},
		{ID: "t3", Trade: "plasterer", Duration: 2, DependsOn: []string{"t1", "t2"}},
	}

	chart, err := Schedule("p1", tasks)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	t3 := chart.TaskByID("t3")
	if t3.StartDay != 3 {
		t.Errorf("t3 start = %d, want 3 (after slowest predecessor)", t3.StartDay)
	}
	if chart.TotalDuration != 5 {
		t.Errorf("TotalDuration = %d, want 5", chart.TotalDuration)
	}

	for _, task := range chart.Tasks {
		if task.EndDay > chart.TotalDuration {
			t.Errorf("task %s finishes at %d, past total duration %d", task.ID, task.EndDay, chart.TotalDuration)
		}
	}
}

func TestSameTradeSerialization(t *testing.T) {
	// No precedence edges, same trade, not parallel: must serialize.
	tasks := []models.TimelineTask{
		{ID: "t1", Trade: "electrician", Duration: 2},
		{ID: "t2", Trade: "electrician", Duration: 3},
	}

	chart, err := Schedule("p1", tasks)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	t2 := chart.TaskByID("t2")
	if t2.StartDay != 2 {
		t.Errorf("t2 start = %d, want 2 (serialized behind t1)", t2.StartDay)
	}
	if chart.TotalDuration != 5 {
		t.Errorf("TotalDuration = %d, want 5", chart.TotalDuration)
	}
}

func TestParallelFlagAllowsOverlap(t *testing.T) {
	tasks := []models.TimelineTask{
		{ID: "t1", Trade: "electrician", Duration: 2},
		{ID: "t2", Trade: "electrician", Duration: 3, CanRunInParallel: true},
	}

	chart, err := Schedule("p1", tasks)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	t2 := chart.TaskByID("t2")
	if t2.StartDay != 0 {
		t.Errorf("t2 start = %d, want 0 (parallel flag allows overlap)", t2.StartDay)
	}
	if chart.TotalDuration != 3 {
		t.Errorf("TotalDuration = %d, want 3", chart.TotalDuration)
	}
}

func TestCycleIsFatal(t *testing.T) {
	tasks := []models.TimelineTask{
		{ID: "t1", Trade: "a", Duration: 1, DependsOn: []string{"t2"}},
		{ID: "t2", Trade: "b", Duration: 1, DependsOn: []string{"t1"}},
	}

	_, err := Schedule("p1", tasks)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("error = %v, want ErrCyclicDependency", err)
	}
}

func TestBuildTasksFromDocument(t *testing.T) {
	doc := models.SoWDocument{
		Sections: []models.Section{
			{ID: "s1", Title: "First fix"},
			{ID: "s2", Title: "Plastering", DependsOn: []string{"s1"}},
		},
		Labor: []models.LaborRequirement{
			{Trade: "electrician", Description: "wiring", PersonDays: 2.5, SectionID: "s1"},
			{Trade: "plumber", Description: "pipework", PersonDays: 2, SectionID: "s1", CanRunInParallel: true},
			{Trade: "plasterer", Description: "skim", PersonDays: 3, SectionID: "s2"},
		},
	}

	tasks := BuildTasks(doc)
	if len(tasks) != 3 {
		t.Fatalf("tasks = %d, want 3", len(tasks))
	}
	if tasks[0].Duration != 3 {
		t.Errorf("duration = %d, want 3 (2.5 person-days rounded up)", tasks[0].Duration)
	}
	if !tasks[1].CanRunInParallel {
		t.Error("parallel flag should carry through")
	}

	// Plastering waits for both first-fix tasks via the section edge.
	plaster := tasks[2]
	if len(plaster.DependsOn) != 2 {
		t.Fatalf("plaster.DependsOn = %v, want both first-fix tasks", plaster.DependsOn)
	}
}

func TestScheduleEmpty(t *testing.T) {
	chart, err := Schedule("p1", nil)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if chart.TotalDuration != 0 || len(chart.CriticalPath) != 0 {
		t.Errorf("empty schedule = %+v", chart)
	}
}
