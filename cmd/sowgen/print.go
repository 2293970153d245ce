package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/renovatehq/sowgen/pkg/models"
)

// printResult renders a completed job's document, costs, and schedule.
func printResult(job *models.SoWGenerationJob) {
	doc := job.Result.SoWDocument
	chart := job.Result.GanttChart

	fmt.Printf("\nScope of Work v%d for project %s\n", doc.Version, doc.ProjectID)
	fmt.Printf("Agents: %s\n\n", strings.Join(job.Result.AgentsUsed, ", "))

	if len(doc.Sections) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.SetTitle("Work Sections")
		t.AppendHeader(table.Row{"ID", "Section", "Depends On"})
		for _, s := range doc.Sections {
			t.AppendRow(table.Row{s.ID, s.Title, strings.Join(s.DependsOn, ", ")})
		}
		t.Render()
	}

	if len(doc.Materials) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.SetTitle("Materials")
		t.AppendHeader(table.Row{"Material", "Qty", "Unit", "Provided By", "Cost"})
		for _, m := range doc.Materials {
			t.AppendRow(table.Row{
				m.Name,
				fmt.Sprintf("%g", m.Quantity),
				m.Unit,
				providerLabel(m.Category),
				fmt.Sprintf("£%.2f", m.EstimatedCost),
			})
		}
		t.Render()
	}

	if len(doc.Labor) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.SetTitle("Labor")
		t.AppendHeader(table.Row{"Trade", "Work", "Days", "Cost"})
		for _, l := range doc.Labor {
			t.AppendRow(table.Row{l.Trade, l.Description, fmt.Sprintf("%g", l.PersonDays), fmt.Sprintf("£%.2f", l.EstimatedCost)})
		}
		t.Render()
	}

	fmt.Println()
	fmt.Printf("Labor:                £%.2f\n", doc.Costs.LaborCosts)
	fmt.Printf("Builder materials:    £%.2f\n", doc.Costs.BuilderMaterials)
	fmt.Printf("Homeowner materials:  £%.2f\n", doc.Costs.HomeownerMaterials)
	color.New(color.Bold).Printf("Total estimate:       £%.2f\n\n", doc.Costs.TotalEstimate)

	if len(chart.Tasks) > 0 {
		critical := make(map[string]bool, len(chart.CriticalPath))
		for _, id := range chart.CriticalPath {
			critical[id] = true
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.SetTitle(fmt.Sprintf("Schedule (%d days)", chart.TotalDuration))
		t.AppendHeader(table.Row{"Task", "Trade", "Start", "End", "Critical"})
		for _, task := range chart.Tasks {
			mark := ""
			if critical[task.ID] {
				mark = "*"
			}
			t.AppendRow(table.Row{task.Name, task.Trade, task.StartDay, task.EndDay, mark})
		}
		t.Render()
	}
}

func providerLabel(c models.MaterialCategory) string {
	switch c {
	case models.MaterialHomeownerProvided:
		return "homeowner"
	case models.MaterialBuilderProvided:
		return "builder"
	default:
		return string(c)
	}
}
