package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/renovatehq/sowgen/internal/config"
	"github.com/renovatehq/sowgen/internal/jobs"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the status of a generation job",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var jobsCmd = &cobra.Command{
	Use:   "jobs <project-id>",
	Short: "List all generation jobs for a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobs,
}

// openStore opens the configured job store for read access. Job history
// needs a persistent store; the in-memory store only lives for one command.
func openStore() (jobs.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Jobs.DBPath == "" {
		return nil, fmt.Errorf("no job database configured; set jobs.db_path in %s", config.GetUserConfigPath())
	}
	return jobs.OpenSQLite(cfg.Jobs.DBPath)
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	job, err := store.GetJob(args[0])
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", args[0])
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendRow(table.Row{"Job", job.ID})
	t.AppendRow(table.Row{"Project", job.ProjectID})
	t.AppendRow(table.Row{"Status", string(job.Status)})
	t.AppendRow(table.Row{"Progress", fmt.Sprintf("%d%%", job.Progress)})
	if job.Stage != "" {
		t.AppendRow(table.Row{"Stage", job.Stage})
	}
	t.AppendRow(table.Row{"Started", job.StartedAt.Local().Format(time.RFC822)})
	if job.CompletedAt != nil {
		t.AppendRow(table.Row{"Completed", job.CompletedAt.Local().Format(time.RFC822)})
	}
	if job.Error != "" {
		t.AppendRow(table.Row{"Error", job.Error})
	}
	t.Render()

	if job.Result != nil {
		printResult(job)
	}
	return nil
}

func runJobs(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.ProjectJobs(args[0])
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Printf("No jobs for project %s.\n", args[0])
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Job", "Status", "Progress", "Started", "Version"})
	for _, job := range list {
		version := "-"
		if job.Result != nil {
			version = fmt.Sprintf("v%d", job.Result.SoWDocument.Version)
		}
		t.AppendRow(table.Row{
			job.ID,
			string(job.Status),
			fmt.Sprintf("%d%%", job.Progress),
			job.StartedAt.Local().Format("02 Jan 15:04"),
			version,
		})
	}
	t.Render()
	return nil
}
