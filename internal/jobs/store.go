package jobs

import (
	"github.com/renovatehq/sowgen/pkg/models"
)

// Store is the persistence boundary for jobs and their artifacts.
// Job records are append-only per project; a modification or regeneration
// creates a new job rather than rewriting a terminal one.
//
// MemoryStore and SQLiteStore implement it.
type Store interface {
	// CreateJob inserts a new job record.
	CreateJob(job *models.SoWGenerationJob) error
	// GetJob returns the job with the given id, or nil when unknown.
	GetJob(id string) (*models.SoWGenerationJob, error)
	// ProjectJobs returns all jobs for a project in creation order.
	ProjectJobs(projectID string) ([]models.SoWGenerationJob, error)
	// UpdateJob writes the record only when the stored status is one of
	// allowed. Returns false without writing when the guard fails, which
	// is how post-terminal writes are rejected. Progress never regresses:
	// the write keeps the larger of the stored and incoming values, so a
	// terminal write built from a stale read cannot roll progress back
	// under a poller.
	UpdateJob(job *models.SoWGenerationJob, allowed ...models.JobStatus) (bool, error)

	// SaveProject records the project context so later modification passes
	// can rebuild their input.
	SaveProject(project models.ProjectContext) error
	// Project returns the stored context for a project id, or nil.
	Project(projectID string) (*models.ProjectContext, error)

	// SaveDocument records a generated document, assigning it the next
	// version for its project (one greater than the latest stored) under
	// the store lock. The stored document is returned; concurrent saves
	// for one project always get distinct, consecutive versions.
	SaveDocument(doc models.SoWDocument) (models.SoWDocument, error)
	// Document returns the document with the given id, or nil.
	Document(id string) (*models.SoWDocument, error)
	// LatestDocument returns the highest-version document for a project,
	// or nil when none has been generated.
	LatestDocument(projectID string) (*models.SoWDocument, error)

	// SaveAnalysis records a review analysis.
	SaveAnalysis(analysis *models.BuilderReviewAnalysis) error
	// LatestAnalysis returns the most recent analysis for a project, or nil.
	LatestAnalysis(projectID string) (*models.BuilderReviewAnalysis, error)

	// Close releases the store.
	Close() error
}
