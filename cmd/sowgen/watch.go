package main

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/renovatehq/sowgen/internal/jobs"
	"github.com/renovatehq/sowgen/pkg/models"
)

var (
	watchTitleStyle = lipgloss.NewStyle().Bold(true)
	watchStageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// watchJob renders a live progress view until the job reaches a terminal
// state, then returns the final record.
func watchJob(manager *jobs.Manager, jobID string) (*models.SoWGenerationJob, error) {
	// Log output corrupts the live display.
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	m := watchModel{
		manager:  manager,
		jobID:    jobID,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		progress: progress.New(progress.WithDefaultGradient()),
	}

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, fmt.Errorf("progress view: %w", err)
	}

	out := final.(watchModel)
	if out.err != nil {
		return nil, out.err
	}
	if out.job == nil {
		return nil, fmt.Errorf("job %s disappeared", jobID)
	}
	return out.job, nil
}

type watchTickMsg time.Time

type watchModel struct {
	manager  *jobs.Manager
	jobID    string
	spinner  spinner.Model
	progress progress.Model
	job      *models.SoWGenerationJob
	err      error
}

func watchTick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, watchTick())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case watchTickMsg:
		job, err := m.manager.GetJobStatus(m.jobID)
		if err != nil {
			m.err = err
			return m, tea.Quit
		}
		m.job = job
		if job == nil || job.Status.Terminal() {
			return m, tea.Quit
		}
		return m, watchTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.manager.CancelJob(m.jobID)
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m watchModel) View() string {
	if m.job == nil {
		return m.spinner.View() + " starting...\n"
	}

	stage := m.job.Stage
	if stage == "" {
		stage = string(m.job.Status)
	}

	return fmt.Sprintf("%s\n%s %s\n%s\n",
		watchTitleStyle.Render("Generating scope of work"),
		m.spinner.View(),
		watchStageStyle.Render(stage),
		m.progress.ViewAs(float64(m.job.Progress)/100),
	)
}
