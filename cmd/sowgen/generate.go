package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/renovatehq/sowgen/internal/config"
	"github.com/renovatehq/sowgen/internal/jobs"
	"github.com/renovatehq/sowgen/pkg/models"
)

var (
	generateType        string
	generateProject     string
	generateDescription string
	generateAnswers     []string
	generateFacts       []string
	generateEmail       string
	generateSMS         string
	generatePlain       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Start a scope-of-work generation job",
	Long: `Start a generation job for a renovation project and watch it run.

Questionnaire answers are passed as repeated --answer key=value flags:

  sowgen generate --type kitchen --answer budget=£25000 --answer style=modern

The command watches the job until it completes and prints the resulting
scope of work, cost estimate, and schedule.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateType, "type", "", "project type (kitchen, bathroom, extension, loft_conversion, full_renovation, landscaping, custom)")
	generateCmd.Flags().StringVar(&generateProject, "project", "", "project id (generated when omitted)")
	generateCmd.Flags().StringVar(&generateDescription, "description", "", "free-text project description")
	generateCmd.Flags().StringArrayVar(&generateAnswers, "answer", nil, "questionnaire answer as key=value (repeatable)")
	generateCmd.Flags().StringArrayVar(&generateFacts, "property", nil, "property fact as key=value (repeatable)")
	generateCmd.Flags().StringVar(&generateEmail, "email", "", "email address for the ready notification")
	generateCmd.Flags().StringVar(&generateSMS, "sms", "", "phone number for the ready notification")
	generateCmd.Flags().BoolVar(&generatePlain, "plain", false, "plain progress output instead of the live view")
	generateCmd.Flags().StringVar(&agentCatalogFile, "agents", "", "YAML agent catalog merged over the built-in agents")
	generateCmd.MarkFlagRequired("type")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	projectType := models.ProjectType(generateType)
	if !projectType.Valid() {
		return fmt.Errorf("unknown project type %q", generateType)
	}

	answers, err := parseKeyValues(generateAnswers)
	if err != nil {
		return fmt.Errorf("--answer: %w", err)
	}
	facts, err := parseKeyValues(generateFacts)
	if err != nil {
		return fmt.Errorf("--property: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	manager, err := buildManager(cfg)
	if err != nil {
		return err
	}
	defer manager.Wait()

	req := models.GenerationRequest{
		Context: models.ProjectContext{
			ProjectID:     generateProject,
			Type:          projectType,
			Description:   generateDescription,
			PropertyFacts: facts,
			UserResponses: answers,
		},
	}
	switch {
	case generateEmail != "":
		req.Notifications = &models.NotificationPrefs{PreferredMethod: models.NotifyEmail, Address: generateEmail}
	case generateSMS != "":
		req.Notifications = &models.NotificationPrefs{PreferredMethod: models.NotifySMS, Address: generateSMS}
	}

	ticket, err := manager.StartSoWGeneration(req)
	if err != nil {
		return err
	}

	fmt.Printf("Job %s queued (estimated completion %s)\n",
		ticket.JobID, ticket.EstimatedCompletion.Local().Format("15:04:05"))

	var job *models.SoWGenerationJob
	if generatePlain {
		job, err = pollPlain(manager, ticket.JobID)
	} else {
		job, err = watchJob(manager, ticket.JobID)
	}
	if err != nil {
		return err
	}

	if job.Status == models.JobStatusFailed {
		color.Red("Generation failed: %s", job.Error)
		os.Exit(1)
	}

	color.Green("Scope of work ready.")
	printResult(job)
	return nil
}

// pollPlain polls the job and prints each stage transition on its own line.
func pollPlain(manager *jobs.Manager, jobID string) (*models.SoWGenerationJob, error) {
	lastStage := ""
	for {
		job, err := manager.GetJobStatus(jobID)
		if err != nil {
			return nil, err
		}
		if job == nil {
			return nil, fmt.Errorf("job %s disappeared", jobID)
		}
		if job.Stage != lastStage && job.Stage != "" {
			fmt.Printf("  [%3d%%] %s\n", job.Progress, job.Stage)
			lastStage = job.Stage
		}
		if job.Status.Terminal() {
			return job, nil
		}
		time.Sleep(250 * time.Millisecond)
	}
}

// parseKeyValues parses repeated key=value flags into a map.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		out[key] = value
	}
	return out, nil
}
