package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renovatehq/sowgen/internal/agents"
	"github.com/renovatehq/sowgen/internal/costing"
	"github.com/renovatehq/sowgen/internal/notify"
	"github.com/renovatehq/sowgen/internal/orchestrator"
	"github.com/renovatehq/sowgen/pkg/models"
)

// stubGenerator produces a fixed draft. When gate is non-nil it blocks until
// the gate closes or the context is cancelled.
type stubGenerator struct {
	mu    sync.Mutex
	gate  chan struct{}
	err   error
	calls []orchestrator.GenerateInput
}

func (g *stubGenerator) Generate(ctx context.Context, in orchestrator.GenerateInput) (models.SoWDocument, []string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, in)
	g.mu.Unlock()

	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return models.SoWDocument{}, nil, ctx.Err()
		}
	}
	if g.err != nil {
		return models.SoWDocument{}, nil, g.err
	}

	doc := models.SoWDocument{
		ID:        uuid.New().String(),
		ProjectID: in.Context.ProjectID,
		Sections: []models.Section{
			{ID: "s1", Title: "Strip out"},
			{ID: "s2", Title: "First fix", DependsOn: []string{"s1"}},
		},
		Materials: []models.Material{
			{Name: "Kitchen units", Quantity: 8, Unit: "each", EstimatedCost: 3200},
			{Name: "Twin and earth cable", Quantity: 50, Unit: "m", EstimatedCost: 85},
		},
		Labor: []models.LaborRequirement{
			{Trade: "laborer", Description: "strip out", PersonDays: 1, SectionID: "s1"},
			{Trade: "electrician", Description: "first fix", PersonDays: 2, SectionID: "s2"},
		},
		GeneratedAt: time.Now().UTC(),
	}
	return doc, []string{"kitchen-orchestrator", "electrical-specialist"}, nil
}

func (g *stubGenerator) lastCall() orchestrator.GenerateInput {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[len(g.calls)-1]
}

type stubReviewer struct {
	analysis *models.BuilderReviewAnalysis
	err      error
}

func (r *stubReviewer) Review(ctx context.Context, project models.ProjectContext, doc models.SoWDocument, chart models.GanttChart) (*models.BuilderReviewAnalysis, error) {
	if r.err != nil {
		return nil, r.err
	}
	a := *r.analysis
	a.ProjectID = doc.ProjectID
	a.SoWVersion = doc.Version
	return &a, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.ReadyEvent
}

func (n *recordingNotifier) SoWReady(prefs *models.NotificationPrefs, event notify.ReadyEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func newTestManager(t *testing.T, gen Generator, reviewer DocumentReviewer, notifier notify.Notifier) *Manager {
	t.Helper()
	registry, err := agents.NewRegistry(agents.DefaultCatalog())
	require.NoError(t, err)
	m := NewManager(NewMemoryStore(), registry, gen, costing.NewClassifier(nil), reviewer, notifier, ManagerConfig{
		JobTimeout: 5 * time.Second,
	})
	t.Cleanup(m.Wait)
	return m
}

func kitchenRequest() models.GenerationRequest {
	return models.GenerationRequest{
		Context: models.ProjectContext{
			ProjectID:     "p1",
			Type:          models.ProjectTypeKitchen,
			UserResponses: map[string]string{"budget": "£25000"},
		},
		Notifications: &models.NotificationPrefs{PreferredMethod: models.NotifyEmail, Address: "home@example.com"},
	}
}

func waitForTerminal(t *testing.T, m *Manager, jobID string) *models.SoWGenerationJob {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := m.GetJobStatus(jobID)
		require.NoError(t, err)
		require.NotNil(t, job)
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return nil
}

func TestStartValidatesSynchronously(t *testing.T) {
	m := newTestManager(t, &stubGenerator{}, nil, nil)

	req := kitchenRequest()
	req.Context.Type = "garage"
	_, err := m.StartSoWGeneration(req)
	assert.ErrorIs(t, err, agents.ErrUnknownProjectType)
}

func TestEndToEndKitchenGeneration(t *testing.T) {
	notifier := &recordingNotifier{}
	m := newTestManager(t, &stubGenerator{}, nil, notifier)

	ticket, err := m.StartSoWGeneration(kitchenRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.JobID)
	assert.True(t, ticket.EstimatedCompletion.After(time.Now()))

	job := waitForTerminal(t, m, ticket.JobID)
	require.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.Result)
	assert.NotEmpty(t, job.Result.SoWDocument.Sections)
	assert.Contains(t, job.Result.AgentsUsed, "kitchen-orchestrator")
	assert.Greater(t, len(job.Result.AgentsUsed), 1)
	assert.Greater(t, job.Result.GanttChart.TotalDuration, 0)
	assert.Greater(t, job.Result.SoWDocument.Costs.TotalEstimate, 0.0)
	require.NotNil(t, job.CompletedAt)

	m.Wait()
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.events, 1)
	assert.Equal(t, ticket.JobID, notifier.events[0].JobID)
	assert.Equal(t, "p1", notifier.events[0].ProjectID)
}

func TestProgressMonotonic(t *testing.T) {
	gen := &stubGenerator{gate: make(chan struct{})}
	m := newTestManager(t, gen, nil, nil)

	ticket, err := m.StartSoWGeneration(kitchenRequest())
	require.NoError(t, err)

	var samples []int
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			job, _ := m.GetJobStatus(ticket.JobID)
			if job == nil {
				continue
			}
			samples = append(samples, job.Progress)
			if job.Status.Terminal() {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	close(gen.gate)
	<-done

	require.NotEmpty(t, samples)
	for i := 1; i < len(samples); i++ {
		assert.GreaterOrEqual(t, samples[i], samples[i-1], "progress went backwards at sample %d: %v", i, samples)
	}
	assert.Equal(t, 100, samples[len(samples)-1])

	job := waitForTerminal(t, m, ticket.JobID)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
}

func TestProgressBelowHundredWhileRunning(t *testing.T) {
	gen := &stubGenerator{gate: make(chan struct{})}
	m := newTestManager(t, gen, nil, nil)

	ticket, err := m.StartSoWGeneration(kitchenRequest())
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	job, err := m.GetJobStatus(ticket.JobID)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Less(t, job.Progress, 100, "progress may reach 100 only on completion")
	assert.False(t, job.Status.Terminal())

	close(gen.gate)
	waitForTerminal(t, m, ticket.JobID)
}

func TestPipelineFailureRecordedOnJob(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("%w: agent electrical-specialist: boom", orchestrator.ErrOrchestrationIncomplete)}
	m := newTestManager(t, gen, nil, nil)

	ticket, err := m.StartSoWGeneration(kitchenRequest())
	require.NoError(t, err)

	job := waitForTerminal(t, m, ticket.JobID)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, "Generation could not be completed; please try again", job.Error)
	assert.Nil(t, job.Result, "failed jobs carry no partial result")
	assert.NotContains(t, job.Error, "electrical-specialist", "internals must not leak to pollers")
}

func TestCancelIdempotence(t *testing.T) {
	gen := &stubGenerator{gate: make(chan struct{})}
	m := newTestManager(t, gen, nil, nil)
	defer close(gen.gate)

	ticket, err := m.StartSoWGeneration(kitchenRequest())
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	assert.True(t, m.CancelJob(ticket.JobID), "first cancel succeeds")
	assert.False(t, m.CancelJob(ticket.JobID), "second cancel is a no-op")

	job := waitForTerminal(t, m, ticket.JobID)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, "Cancelled by user", job.Error)
	assert.Nil(t, job.Result)
}

func TestCancelCompletedJobLeavesResult(t *testing.T) {
	m := newTestManager(t, &stubGenerator{}, nil, nil)

	ticket, err := m.StartSoWGeneration(kitchenRequest())
	require.NoError(t, err)
	before := waitForTerminal(t, m, ticket.JobID)
	require.Equal(t, models.JobStatusCompleted, before.Status)

	assert.False(t, m.CancelJob(ticket.JobID))

	after, err := m.GetJobStatus(ticket.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, after.Status)
	assert.NotNil(t, after.Result)
}

func TestCancelledJobDiscardsLateResult(t *testing.T) {
	gen := &stubGenerator{gate: make(chan struct{})}
	m := newTestManager(t, gen, nil, nil)

	ticket, err := m.StartSoWGeneration(kitchenRequest())
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	require.True(t, m.CancelJob(ticket.JobID))
	close(gen.gate)
	m.Wait()

	job, err := m.GetJobStatus(ticket.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, "Cancelled by user", job.Error)
	assert.Nil(t, job.Result, "in-flight work must not mutate a cancelled job")
}

// gatedStore pins a specific write interleaving: the first failed-status
// write parks until released, and processing writes past the generation
// checkpoint park until the pipeline is released.
type gatedStore struct {
	*MemoryStore
	terminalArrived chan struct{}
	releaseTerminal chan struct{}
	releasePipeline chan struct{}
	arriveOnce      sync.Once
}

func (s *gatedStore) UpdateJob(job *models.SoWGenerationJob, allowed ...models.JobStatus) (bool, error) {
	switch {
	case job.Status == models.JobStatusFailed:
		s.arriveOnce.Do(func() { close(s.terminalArrived) })
		<-s.releaseTerminal
	case job.Status == models.JobStatusProcessing && job.Progress > progressGeneration:
		<-s.releasePipeline
	}
	return s.MemoryStore.UpdateJob(job, allowed...)
}

func waitForProgress(t *testing.T, m *Manager, jobID string, progress int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := m.GetJobStatus(jobID)
		require.NoError(t, err)
		if job != nil && job.Progress >= progress {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("job %s never reached progress %d", jobID, progress)
}

func TestCancelRacingAdvanceNeverRegressesProgress(t *testing.T) {
	gen := &stubGenerator{gate: make(chan struct{})}
	store := &gatedStore{
		MemoryStore:     NewMemoryStore(),
		terminalArrived: make(chan struct{}),
		releaseTerminal: make(chan struct{}),
		releasePipeline: make(chan struct{}),
	}
	registry, err := agents.NewRegistry(agents.DefaultCatalog())
	require.NoError(t, err)
	m := NewManager(store, registry, gen, costing.NewClassifier(nil), nil, nil, ManagerConfig{
		JobTimeout: 5 * time.Second,
	})
	t.Cleanup(m.Wait)

	ticket, err := m.StartSoWGeneration(kitchenRequest())
	require.NoError(t, err)
	waitForProgress(t, m, ticket.JobID, progressAnalysis)

	// The cancel reads its snapshot at the analysis checkpoint, then its
	// terminal write parks at the store.
	cancelled := make(chan bool, 1)
	go func() { cancelled <- m.CancelJob(ticket.JobID) }()
	<-store.terminalArrived

	// Let the pipeline land the generation checkpoint while the cancel
	// write is still parked, then release the cancel.
	close(gen.gate)
	waitForProgress(t, m, ticket.JobID, progressGeneration)
	close(store.releaseTerminal)
	assert.True(t, <-cancelled)
	close(store.releasePipeline)

	job := waitForTerminal(t, m, ticket.JobID)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, "Cancelled by user", job.Error)
	assert.Equal(t, progressGeneration, job.Progress, "a poller that saw the generation checkpoint must never see less")
	assert.Nil(t, job.Result)
}

func TestConcurrentJobsGetDistinctVersions(t *testing.T) {
	gen := &stubGenerator{gate: make(chan struct{})}
	m := newTestManager(t, gen, nil, nil)

	first, err := m.StartSoWGeneration(kitchenRequest())
	require.NoError(t, err)
	second, err := m.StartSoWGeneration(kitchenRequest())
	require.NoError(t, err)

	// Both pipelines are in flight before either document is stored.
	time.Sleep(20 * time.Millisecond)
	close(gen.gate)

	a := waitForTerminal(t, m, first.JobID)
	b := waitForTerminal(t, m, second.JobID)
	require.Equal(t, models.JobStatusCompleted, a.Status)
	require.Equal(t, models.JobStatusCompleted, b.Status)

	versions := []int{a.Result.SoWDocument.Version, b.Result.SoWDocument.Version}
	sort.Ints(versions)
	assert.Equal(t, []int{1, 2}, versions, "concurrent generations must not share a version")
}

func TestGetJobStatusUnknown(t *testing.T) {
	m := newTestManager(t, &stubGenerator{}, nil, nil)
	job, err := m.GetJobStatus("nope")
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestGetProjectJobs(t *testing.T) {
	m := newTestManager(t, &stubGenerator{}, nil, nil)

	first, err := m.StartSoWGeneration(kitchenRequest())
	require.NoError(t, err)
	waitForTerminal(t, m, first.JobID)
	second, err := m.StartSoWGeneration(kitchenRequest())
	require.NoError(t, err)
	waitForTerminal(t, m, second.JobID)

	list, err := m.GetProjectJobs("p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.JobID, list[0].ID, "jobs listed in creation order")
	assert.Equal(t, second.JobID, list[1].ID)
}

func TestModifySoWCreatesNewJobAndIncrementsVersion(t *testing.T) {
	gen := &stubGenerator{}
	m := newTestManager(t, gen, nil, nil)

	ticket, err := m.StartSoWGeneration(kitchenRequest())
	require.NoError(t, err)
	original := waitForTerminal(t, m, ticket.JobID)
	require.Equal(t, models.JobStatusCompleted, original.Status)
	require.Equal(t, 1, original.Result.SoWDocument.Version)

	modTicket, err := m.ModifySoW(models.ModificationRequest{
		ProjectID:     "p1",
		SoWID:         original.Result.SoWDocument.ID,
		Modifications: map[string]string{"worktop": "quartz instead of laminate"},
		Reason:        "homeowner changed material choice",
	})
	require.NoError(t, err)
	assert.NotEqual(t, ticket.JobID, modTicket.JobID, "modification is a new job")

	modified := waitForTerminal(t, m, modTicket.JobID)
	require.Equal(t, models.JobStatusCompleted, modified.Status)
	assert.Equal(t, 2, modified.Result.SoWDocument.Version, "version increments by exactly one")

	in := gen.lastCall()
	assert.Contains(t, in.Instructions, "quartz instead of laminate")
	assert.Contains(t, in.Instructions, "homeowner changed material choice")
	assert.Equal(t, "quartz instead of laminate", in.Context.UserResponses["worktop"])
	assert.Equal(t, "£25000", in.Context.UserResponses["budget"], "prior answers carry over")

	// The original job record is untouched.
	again, err := m.GetJobStatus(ticket.JobID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Result.SoWDocument.Version)
}

func TestModifySoWUnknownDocument(t *testing.T) {
	m := newTestManager(t, &stubGenerator{}, nil, nil)
	_, err := m.ModifySoW(models.ModificationRequest{ProjectID: "p1", SoWID: "missing"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestReviewAndApplyRecommendations(t *testing.T) {
	gen := &stubGenerator{}
	reviewer := &stubReviewer{analysis: &models.BuilderReviewAnalysis{
		ID:      uuid.New().String(),
		Score:   74,
		Quality: models.QualityNeedsImprovement,
		Issues: []models.Issue{
			{ID: "i1", Severity: models.SeverityMajor, Category: "cost_accuracy", Location: "Kitchen units"},
		},
		Recommendations: []models.Recommendation{
			{ID: "r1", Priority: models.PriorityHigh, IssueID: "i1", Suggestion: "re-price units at trade cost"},
		},
		CreatedAt: time.Now().UTC(),
	}}
	m := newTestManager(t, gen, reviewer, nil)

	ticket, err := m.StartSoWGeneration(kitchenRequest())
	require.NoError(t, err)
	waitForTerminal(t, m, ticket.JobID)

	analysis, err := m.ReviewSoW(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", analysis.ProjectID)
	assert.Equal(t, 1, analysis.SoWVersion)

	applyTicket, err := m.ApplyRecommendations("p1", []string{"r1"})
	require.NoError(t, err)
	regenerated := waitForTerminal(t, m, applyTicket.JobID)
	require.Equal(t, models.JobStatusCompleted, regenerated.Status)
	assert.Equal(t, 2, regenerated.Result.SoWDocument.Version)
	assert.Contains(t, gen.lastCall().Instructions, "re-price units at trade cost")
}

func TestReviewWithoutCompletedJob(t *testing.T) {
	m := newTestManager(t, &stubGenerator{}, &stubReviewer{}, nil)
	_, err := m.ReviewSoW(context.Background(), "p-empty")
	assert.ErrorIs(t, err, ErrNoCompletedJob)
}

func TestFailureMessageClassification(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{orchestrator.ErrOrchestrationIncomplete, "Generation could not be completed; please try again"},
		{agents.ErrUnknownProjectType, "Unknown project type"},
		{context.DeadlineExceeded, "Generation timed out"},
		{context.Canceled, "Cancelled by user"},
		{errors.New("something else"), "Generation failed"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, failureMessage(tc.err))
	}
}
