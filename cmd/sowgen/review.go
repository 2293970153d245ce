package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/renovatehq/sowgen/internal/config"
	"github.com/renovatehq/sowgen/pkg/models"
)

var reviewCmd = &cobra.Command{
	Use:   "review <project-id>",
	Short: "Run a builder quality review of the latest scope of work",
	Long: `Run a builder-review pass against the project's latest completed
scope of work. The review scores the document, lists issues by severity,
and suggests ranked recommendations that 'sowgen apply' can feed into a
regeneration.`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

var applyCmd = &cobra.Command{
	Use:   "apply <project-id> <recommendation-id>...",
	Short: "Regenerate the scope of work applying review recommendations",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runApply,
}

func init() {
	reviewCmd.Flags().StringVar(&agentCatalogFile, "agents", "", "YAML agent catalog merged over the built-in agents")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	manager, err := buildManager(cfg)
	if err != nil {
		return err
	}
	defer manager.Wait()

	analysis, err := manager.ReviewSoW(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printAnalysis(analysis)
	return nil
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	manager, err := buildManager(cfg)
	if err != nil {
		return err
	}
	defer manager.Wait()

	ticket, err := manager.ApplyRecommendations(args[0], args[1:])
	if err != nil {
		return err
	}

	fmt.Printf("Regeneration job %s queued.\n", ticket.JobID)
	job, err := watchJob(manager, ticket.JobID)
	if err != nil {
		return err
	}
	if job.Status == models.JobStatusFailed {
		color.Red("Regeneration failed: %s", job.Error)
		os.Exit(1)
	}

	color.Green("Regenerated scope of work ready.")
	printResult(job)
	return nil
}

func printAnalysis(a *models.BuilderReviewAnalysis) {
	scoreColor := color.New(color.FgGreen)
	switch a.Quality {
	case models.QualityNeedsImprovement:
		scoreColor = color.New(color.FgYellow)
	case models.QualityPoor:
		scoreColor = color.New(color.FgRed)
	}

	fmt.Printf("Review of project %s, scope of work v%d\n", a.ProjectID, a.SoWVersion)
	scoreColor.Printf("Score: %d/100 (%s)\n\n", a.Score, a.Quality)

	if len(a.Issues) == 0 {
		fmt.Println("No issues found.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Issues")
	t.AppendHeader(table.Row{"ID", "Severity", "Category", "Location", "Description"})
	for _, issue := range a.Issues {
		t.AppendRow(table.Row{issue.ID, string(issue.Severity), issue.Category, issue.Location, issue.Description})
	}
	t.Render()

	if len(a.Recommendations) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.SetTitle("Recommendations")
		t.AppendHeader(table.Row{"ID", "Priority", "Issue", "Suggestion"})
		for _, rec := range a.Recommendations {
			t.AppendRow(table.Row{rec.ID, string(rec.Priority), rec.IssueID, rec.Suggestion})
		}
		t.Render()
		fmt.Println("\nApply with: sowgen apply", a.ProjectID, "<recommendation-id>...")
	}
}
