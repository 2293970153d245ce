package jobs

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renovatehq/sowgen/pkg/models"
)

func testJob(id, projectID string) *models.SoWGenerationJob {
	return &models.SoWGenerationJob{
		ID:        id,
		ProjectID: projectID,
		Status:    models.JobStatusQueued,
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// storeUnderTest exercises the Store contract against any implementation.
func storeUnderTest(t *testing.T, s Store) {
	t.Helper()

	// Unknown lookups return nil, not errors.
	job, err := s.GetJob("nope")
	require.NoError(t, err)
	assert.Nil(t, job)

	require.NoError(t, s.CreateJob(testJob("j1", "p1")))
	require.NoError(t, s.CreateJob(testJob("j2", "p1")))
	require.NoError(t, s.CreateJob(testJob("j3", "p2")))

	got, err := s.GetJob("j1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.JobStatusQueued, got.Status)

	list, err := s.ProjectJobs("p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "j1", list[0].ID)
	assert.Equal(t, "j2", list[1].ID)

	// Guarded update: allowed transition succeeds.
	got.Status = models.JobStatusProcessing
	got.Progress = 10
	got.Stage = "requirements analysis"
	ok, err := s.UpdateJob(got, models.JobStatusQueued)
	require.NoError(t, err)
	assert.True(t, ok)

	// Guard mismatch: the stored status is no longer queued.
	got.Progress = 45
	ok, err = s.UpdateJob(got, models.JobStatusQueued)
	require.NoError(t, err)
	assert.False(t, ok)

	// An allowed write carrying a stale, lower progress keeps the stored
	// value; pollers never see progress move backwards.
	stale := *got
	stale.Progress = 5
	ok, err = s.UpdateJob(&stale, models.JobStatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)
	cur, err := s.GetJob("j1")
	require.NoError(t, err)
	assert.Equal(t, 10, cur.Progress, "progress never regresses")

	// Completion with result round-trips.
	now := time.Now().UTC().Truncate(time.Second)
	got.Status = models.JobStatusCompleted
	got.Progress = 100
	got.CompletedAt = &now
	got.Result = &models.GenerationResult{
		SoWDocument: models.SoWDocument{ID: "sow-1", ProjectID: "p1", Version: 1},
		GanttChart:  models.GanttChart{ID: "g1", ProjectID: "p1", TotalDuration: 7},
		AgentsUsed:  []string{"kitchen-orchestrator"},
	}
	ok, err = s.UpdateJob(got, models.JobStatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)

	reread, err := s.GetJob("j1")
	require.NoError(t, err)
	require.NotNil(t, reread.Result)
	assert.Equal(t, 7, reread.Result.GanttChart.TotalDuration)
	require.NotNil(t, reread.CompletedAt)

	// Post-terminal writes are rejected regardless of payload.
	reread.Error = "late write"
	ok, err = s.UpdateJob(reread, models.JobStatusQueued, models.JobStatusProcessing)
	require.NoError(t, err)
	assert.False(t, ok)

	// Project context round-trip.
	require.NoError(t, s.SaveProject(models.ProjectContext{
		ProjectID:     "p1",
		Type:          models.ProjectTypeKitchen,
		UserResponses: map[string]string{"budget": "£25000"},
	}))
	project, err := s.Project("p1")
	require.NoError(t, err)
	require.NotNil(t, project)
	assert.Equal(t, "£25000", project.UserResponses["budget"])

	// Documents: the store assigns consecutive versions per project.
	first, err := s.SaveDocument(models.SoWDocument{ID: "sow-1", ProjectID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	second, err := s.SaveDocument(models.SoWDocument{ID: "sow-2", ProjectID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	latest, err := s.LatestDocument("p1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 2, latest.Version)

	byID, err := s.Document("sow-1")
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, 1, byID.Version)

	missing, err := s.LatestDocument("p-none")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Analyses: latest wins.
	require.NoError(t, s.SaveAnalysis(&models.BuilderReviewAnalysis{
		ID: "a1", ProjectID: "p1", Score: 60, CreatedAt: time.Now().UTC().Add(-time.Hour),
	}))
	require.NoError(t, s.SaveAnalysis(&models.BuilderReviewAnalysis{
		ID: "a2", ProjectID: "p1", Score: 85, CreatedAt: time.Now().UTC(),
	}))
	analysis, err := s.LatestAnalysis("p1")
	require.NoError(t, err)
	require.NotNil(t, analysis)
	assert.Equal(t, "a2", analysis.ID)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	storeUnderTest(t, s)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sowgen.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	storeUnderTest(t, s)
}

func TestSQLiteMigrationIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sowgen.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.CreateJob(testJob("j1", "p1")))
	require.NoError(t, s.Close())

	// Reopening applies no duplicate migrations and keeps the data.
	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	job, err := s.GetJob("j1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "p1", job.ProjectID)
}
