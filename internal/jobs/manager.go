// Package jobs owns the asynchronous generation job lifecycle: accepting
// requests, running the pipeline, and exposing poll-based status.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/renovatehq/sowgen/internal/agents"
	"github.com/renovatehq/sowgen/internal/costing"
	"github.com/renovatehq/sowgen/internal/notify"
	"github.com/renovatehq/sowgen/internal/orchestrator"
	"github.com/renovatehq/sowgen/internal/review"
	"github.com/renovatehq/sowgen/internal/timeline"
	"github.com/renovatehq/sowgen/pkg/models"
)

// ErrCancelled marks pipeline work abandoned because its job was cancelled.
var ErrCancelled = errors.New("job cancelled")

// ErrDocumentNotFound is returned when a modification references a document
// that was never generated.
var ErrDocumentNotFound = errors.New("document not found")

// ErrNoCompletedJob is returned when a review is requested for a project
// with no completed generation.
var ErrNoCompletedJob = errors.New("no completed job for project")

// Progress checkpoints per pipeline stage. Progress only ever moves forward
// through these values.
const (
	progressAnalysis       = 10
	progressGeneration     = 45
	progressClassification = 60
	progressCosting        = 70
	progressTimeline       = 85
	progressDone           = 100
)

// Generator runs one orchestration pass. orchestrator.Orchestrator
// implements it; tests substitute a stub.
type Generator interface {
	Generate(ctx context.Context, in orchestrator.GenerateInput) (models.SoWDocument, []string, error)
}

// DocumentReviewer runs the quality review pass. review.Reviewer implements
// it.
type DocumentReviewer interface {
	Review(ctx context.Context, project models.ProjectContext, doc models.SoWDocument, chart models.GanttChart) (*models.BuilderReviewAnalysis, error)
}

// ManagerConfig tunes the Manager. Zero values get sensible defaults.
type ManagerConfig struct {
	// BaseEstimate is the fixed part of the completion estimate.
	// Defaults to 90s.
	BaseEstimate time.Duration
	// PerSpecialist is added per specialist agent. Defaults to 20s.
	PerSpecialist time.Duration
	// JobTimeout bounds one pipeline run. Defaults to 10m.
	JobTimeout time.Duration
}

// Manager is the single scheduler for generation jobs. Each accepted job
// runs its pipeline on its own goroutine; all job-record writes go through
// the store's guarded update, so a record never mutates after reaching a
// terminal state.
type Manager struct {
	store      Store
	registry   *agents.Registry
	generator  Generator
	classifier *costing.Classifier
	reviewer   DocumentReviewer
	notifier   notify.Notifier
	cfg        ManagerConfig

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a Manager. reviewer and notifier may be nil when those
// surfaces are unused.
func NewManager(store Store, registry *agents.Registry, generator Generator, classifier *costing.Classifier, reviewer DocumentReviewer, notifier notify.Notifier, cfg ManagerConfig) *Manager {
	if cfg.BaseEstimate <= 0 {
		cfg.BaseEstimate = 90 * time.Second
	}
	if cfg.PerSpecialist <= 0 {
		cfg.PerSpecialist = 20 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Manager{
		store:      store,
		registry:   registry,
		generator:  generator,
		classifier: classifier,
		reviewer:   reviewer,
		notifier:   notifier,
		cfg:        cfg,
		cancels:    make(map[string]context.CancelFunc),
	}
}

// StartSoWGeneration validates the request synchronously, queues a job, and
// returns its ticket immediately. Pipeline errors never surface here; they
// are recorded on the job record.
func (m *Manager) StartSoWGeneration(req models.GenerationRequest) (models.JobTicket, error) {
	project := req.Context
	if !project.Type.Valid() {
		return models.JobTicket{}, fmt.Errorf("%w: %q", agents.ErrUnknownProjectType, project.Type)
	}
	set, err := m.registry.RequiredAgents(project.Type)
	if err != nil {
		return models.JobTicket{}, err
	}
	if project.ProjectID == "" {
		project.ProjectID = uuid.New().String()
	}
	if err := m.store.SaveProject(project); err != nil {
		return models.JobTicket{}, fmt.Errorf("save project: %w", err)
	}

	return m.enqueue(project, req.Notifications, "", len(set.Specialists))
}

// enqueue creates the job record and starts the pipeline goroutine.
func (m *Manager) enqueue(project models.ProjectContext, prefs *models.NotificationPrefs, instructions string, specialists int) (models.JobTicket, error) {
	job := &models.SoWGenerationJob{
		ID:        uuid.New().String(),
		ProjectID: project.ProjectID,
		Status:    models.JobStatusQueued,
		StartedAt: time.Now().UTC(),
	}
	if err := m.store.CreateJob(job); err != nil {
		return models.JobTicket{}, fmt.Errorf("create job: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.JobTimeout)
	m.mu.Lock()
	m.cancels[job.ID] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		defer func() {
			m.mu.Lock()
			delete(m.cancels, job.ID)
			m.mu.Unlock()
		}()
		m.process(ctx, job.ID, project, prefs, instructions)
	}()

	log.Printf("[jobs] queued job %s for project %s", job.ID, project.ProjectID)
	return models.JobTicket{
		JobID:               job.ID,
		EstimatedCompletion: time.Now().UTC().Add(m.estimate(specialists)),
	}, nil
}

// estimate is a fixed base plus a per-specialist increment.
func (m *Manager) estimate(specialists int) time.Duration {
	return m.cfg.BaseEstimate + time.Duration(specialists)*m.cfg.PerSpecialist
}

// process runs the pipeline for one job. Every stage boundary re-checks the
// job record; a cancelled job stops at the next boundary and its in-flight
// results are discarded.
func (m *Manager) process(ctx context.Context, jobID string, project models.ProjectContext, prefs *models.NotificationPrefs, instructions string) {
	begin := time.Now()

	if !m.advance(jobID, progressAnalysis, "requirements analysis") {
		log.Printf("[jobs] %s: %v before analysis", jobID, ErrCancelled)
		return
	}

	doc, agentsUsed, err := m.generator.Generate(ctx, orchestrator.GenerateInput{
		Context:      project,
		Instructions: instructions,
	})
	if err != nil {
		m.fail(jobID, err)
		return
	}
	if !m.advance(jobID, progressGeneration, "scope-of-work generation") {
		log.Printf("[jobs] %s: %v, discarding draft", jobID, ErrCancelled)
		return
	}

	doc = m.classifier.Classify(doc)
	if !m.advance(jobID, progressClassification, "material classification") {
		return
	}
	if !m.advance(jobID, progressCosting, "labor and cost calculation") {
		return
	}

	chart, err := timeline.Schedule(project.ProjectID, timeline.BuildTasks(doc))
	if err != nil {
		m.fail(jobID, err)
		return
	}
	if !m.advance(jobID, progressTimeline, "timeline optimization") {
		return
	}

	// The store assigns the document version under its lock, so concurrent
	// generations for one project always land on distinct versions.
	doc, err = m.store.SaveDocument(doc)
	if err != nil {
		m.fail(jobID, err)
		return
	}

	result := &models.GenerationResult{
		SoWDocument:    doc,
		GanttChart:     chart,
		AgentsUsed:     agentsUsed,
		ProcessingTime: time.Since(begin),
	}
	if !m.complete(jobID, result) {
		log.Printf("[jobs] %s: %v, discarding result", jobID, ErrCancelled)
		return
	}

	log.Printf("[jobs] job %s completed: v%d, £%.2f, %d days", jobID, doc.Version,
		doc.Costs.TotalEstimate, chart.TotalDuration)
	m.notifier.SoWReady(prefs, notify.ReadyEvent{
		ProjectID:     project.ProjectID,
		JobID:         jobID,
		TotalEstimate: doc.Costs.TotalEstimate,
		TotalDuration: chart.TotalDuration,
	})
}

// advance moves an active job to processing at the given checkpoint.
// Returns false when the job is no longer active.
func (m *Manager) advance(jobID string, progress int, stage string) bool {
	job, err := m.store.GetJob(jobID)
	if err != nil || job == nil || job.Status.Terminal() {
		return false
	}
	job.Status = models.JobStatusProcessing
	if progress > job.Progress {
		job.Progress = progress
	}
	job.Stage = stage

	ok, err := m.store.UpdateJob(job, models.JobStatusQueued, models.JobStatusProcessing)
	if err != nil {
		log.Printf("[jobs] %s: advance to %q: %v", jobID, stage, err)
		return false
	}
	return ok
}

// complete attaches the result and moves the job to completed. Returns false
// when the job was cancelled in the meantime.
func (m *Manager) complete(jobID string, result *models.GenerationResult) bool {
	job, err := m.store.GetJob(jobID)
	if err != nil || job == nil || job.Status.Terminal() {
		return false
	}
	now := time.Now().UTC()
	job.Status = models.JobStatusCompleted
	job.Progress = progressDone
	job.Stage = "finalization"
	job.CompletedAt = &now
	job.Result = result

	ok, err := m.store.UpdateJob(job, models.JobStatusProcessing)
	if err != nil {
		log.Printf("[jobs] %s: complete: %v", jobID, err)
		return false
	}
	return ok
}

// fail records a classification-appropriate message on the job. No partial
// result is ever attached.
func (m *Manager) fail(jobID string, cause error) {
	job, err := m.store.GetJob(jobID)
	if err != nil || job == nil || job.Status.Terminal() {
		return
	}
	now := time.Now().UTC()
	job.Status = models.JobStatusFailed
	job.CompletedAt = &now
	job.Error = failureMessage(cause)
	job.Result = nil

	ok, err := m.store.UpdateJob(job, models.JobStatusQueued, models.JobStatusProcessing)
	if err != nil || !ok {
		return
	}
	log.Printf("[jobs] job %s failed: %v", jobID, cause)
}

// failureMessage maps pipeline errors onto user-facing text. Internal
// identifiers and stack detail never reach pollers.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, agents.ErrUnknownProjectType):
		return "Unknown project type"
	case errors.Is(err, orchestrator.ErrOrchestrationIncomplete):
		return "Generation could not be completed; please try again"
	case errors.Is(err, timeline.ErrCyclicDependency):
		return "Internal scheduling error"
	case errors.Is(err, context.DeadlineExceeded):
		return "Generation timed out"
	case errors.Is(err, context.Canceled):
		return "Cancelled by user"
	default:
		return "Generation failed"
	}
}

// CancelJob cancels an active job. Returns false when the job is unknown or
// already terminal; the second cancel of the same job is always false.
func (m *Manager) CancelJob(jobID string) bool {
	job, err := m.store.GetJob(jobID)
	if err != nil || job == nil || job.Status.Terminal() {
		return false
	}

	now := time.Now().UTC()
	job.Status = models.JobStatusFailed
	job.CompletedAt = &now
	job.Error = "Cancelled by user"
	job.Result = nil

	ok, err := m.store.UpdateJob(job, models.JobStatusQueued, models.JobStatusProcessing)
	if err != nil || !ok {
		return false
	}

	m.mu.Lock()
	if cancel, found := m.cancels[jobID]; found {
		cancel()
	}
	m.mu.Unlock()

	log.Printf("[jobs] job %s cancelled", jobID)
	return true
}

// GetJobStatus returns the job record, or nil for unknown ids. Pure read.
func (m *Manager) GetJobStatus(jobID string) (*models.SoWGenerationJob, error) {
	return m.store.GetJob(jobID)
}

// GetProjectJobs returns every job for a project in creation order.
func (m *Manager) GetProjectJobs(projectID string) ([]models.SoWGenerationJob, error) {
	return m.store.ProjectJobs(projectID)
}

// ModifySoW queues a regeneration incorporating the requested modifications.
// The original job and document are untouched; the new document's version is
// one greater than the latest for the project.
func (m *Manager) ModifySoW(req models.ModificationRequest) (models.JobTicket, error) {
	doc, err := m.store.Document(req.SoWID)
	if err != nil {
		return models.JobTicket{}, err
	}
	if doc == nil {
		return models.JobTicket{}, fmt.Errorf("%w: %s", ErrDocumentNotFound, req.SoWID)
	}

	project, err := m.store.Project(req.ProjectID)
	if err != nil {
		return models.JobTicket{}, err
	}
	if project == nil {
		return models.JobTicket{}, fmt.Errorf("%w: no context for project %s", ErrDocumentNotFound, req.ProjectID)
	}

	set, err := m.registry.RequiredAgents(project.Type)
	if err != nil {
		return models.JobTicket{}, err
	}

	updated := project.WithResponses(req.Modifications)
	return m.enqueue(updated, nil, modificationInstructions(req), len(set.Specialists))
}

// modificationInstructions renders the request as directives for the
// regeneration pass, in a stable order.
func modificationInstructions(req models.ModificationRequest) string {
	keys := make([]string, 0, len(req.Modifications))
	for k := range req.Modifications {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := "Revise the previous scope of work with these changes:\n"
	for _, k := range keys {
		out += fmt.Sprintf("- %s: %s\n", k, req.Modifications[k])
	}
	if req.Reason != "" {
		out += "Reason: " + req.Reason + "\n"
	}
	return out
}

// ReviewSoW runs the quality review against the project's latest completed
// generation and persists the analysis.
func (m *Manager) ReviewSoW(ctx context.Context, projectID string) (*models.BuilderReviewAnalysis, error) {
	jobsForProject, err := m.store.ProjectJobs(projectID)
	if err != nil {
		return nil, err
	}
	var result *models.GenerationResult
	for i := len(jobsForProject) - 1; i >= 0; i-- {
		if jobsForProject[i].Status == models.JobStatusCompleted && jobsForProject[i].Result != nil {
			result = jobsForProject[i].Result
			break
		}
	}
	if result == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCompletedJob, projectID)
	}

	project, err := m.store.Project(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		project = &models.ProjectContext{ProjectID: projectID, Type: models.ProjectTypeCustom}
	}

	analysis, err := m.reviewer.Review(ctx, *project, result.SoWDocument, result.GanttChart)
	if err != nil {
		return nil, err
	}
	if err := m.store.SaveAnalysis(analysis); err != nil {
		return nil, err
	}
	return analysis, nil
}

// ApplyRecommendations turns selected recommendations from the latest
// analysis into a modification job. It never loops on its own; each
// application is one explicit regeneration.
func (m *Manager) ApplyRecommendations(projectID string, recommendationIDs []string) (models.JobTicket, error) {
	analysis, err := m.store.LatestAnalysis(projectID)
	if err != nil {
		return models.JobTicket{}, err
	}
	if analysis == nil {
		return models.JobTicket{}, fmt.Errorf("%w: no analysis for project %s", ErrNoCompletedJob, projectID)
	}

	latest, err := m.store.LatestDocument(projectID)
	if err != nil {
		return models.JobTicket{}, err
	}
	if latest == nil {
		return models.JobTicket{}, fmt.Errorf("%w: project %s", ErrDocumentNotFound, projectID)
	}

	req, err := review.BuildModificationRequest(analysis, latest.ID, recommendationIDs)
	if err != nil {
		return models.JobTicket{}, err
	}
	return m.ModifySoW(req)
}

// Wait blocks until every in-flight job goroutine has finished. Used by the
// CLI and tests for clean shutdown; pollers never need it.
func (m *Manager) Wait() {
	m.wg.Wait()
}
