package jobs

import (
	"fmt"
	"sync"

	"github.com/renovatehq/sowgen/pkg/models"
)

// MemoryStore is the in-process Store used by tests and by the CLI when no
// database path is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	jobs     map[string]models.SoWGenerationJob
	jobOrder []string
	projects map[string]models.ProjectContext
	docs     map[string]models.SoWDocument
	docOrder []string
	analyses []models.BuilderReviewAnalysis
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:     make(map[string]models.SoWGenerationJob),
		projects: make(map[string]models.ProjectContext),
		docs:     make(map[string]models.SoWDocument),
	}
}

// CreateJob implements Store.
func (s *MemoryStore) CreateJob(job *models.SoWGenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = *job
	s.jobOrder = append(s.jobOrder, job.ID)
	return nil
}

// GetJob implements Store.
func (s *MemoryStore) GetJob(id string) (*models.SoWGenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	return &job, nil
}

// ProjectJobs implements Store.
func (s *MemoryStore) ProjectJobs(projectID string) ([]models.SoWGenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SoWGenerationJob
	for _, id := range s.jobOrder {
		if job := s.jobs[id]; job.ProjectID == projectID {
			out = append(out, job)
		}
	}
	return out, nil
}

// UpdateJob implements Store. The write happens only when the stored status
// matches one of the allowed values, and keeps the stored progress when it
// is ahead of the incoming record.
func (s *MemoryStore) UpdateJob(job *models.SoWGenerationJob, allowed ...models.JobStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[job.ID]
	if !ok {
		return false, nil
	}
	if !statusAllowed(current.Status, allowed) {
		return false, nil
	}
	rec := *job
	if rec.Progress < current.Progress {
		rec.Progress = current.Progress
	}
	s.jobs[job.ID] = rec
	return true, nil
}

// SaveProject implements Store.
func (s *MemoryStore) SaveProject(project models.ProjectContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[project.ProjectID] = project
	return nil
}

// Project implements Store.
func (s *MemoryStore) Project(projectID string) (*models.ProjectContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	project, ok := s.projects[projectID]
	if !ok {
		return nil, nil
	}
	return &project, nil
}

// SaveDocument implements Store. The version is assigned here, under the
// lock, so concurrent saves for one project never share a version.
func (s *MemoryStore) SaveDocument(doc models.SoWDocument) (models.SoWDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := 0
	for _, id := range s.docOrder {
		if d := s.docs[id]; d.ProjectID == doc.ProjectID && d.Version > latest {
			latest = d.Version
		}
	}
	doc.Version = latest + 1
	if _, exists := s.docs[doc.ID]; !exists {
		s.docOrder = append(s.docOrder, doc.ID)
	}
	s.docs[doc.ID] = doc
	return doc, nil
}

// Document implements Store.
func (s *MemoryStore) Document(id string) (*models.SoWDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

// LatestDocument implements Store.
func (s *MemoryStore) LatestDocument(projectID string) (*models.SoWDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.SoWDocument
	for _, id := range s.docOrder {
		doc := s.docs[id]
		if doc.ProjectID != projectID {
			continue
		}
		if latest == nil || doc.Version > latest.Version {
			d := doc
			latest = &d
		}
	}
	return latest, nil
}

// SaveAnalysis implements Store.
func (s *MemoryStore) SaveAnalysis(analysis *models.BuilderReviewAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses = append(s.analyses, *analysis)
	return nil
}

// LatestAnalysis implements Store.
func (s *MemoryStore) LatestAnalysis(projectID string) (*models.BuilderReviewAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.analyses) - 1; i >= 0; i-- {
		if s.analyses[i].ProjectID == projectID {
			a := s.analyses[i]
			return &a, nil
		}
	}
	return nil, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

func statusAllowed(status models.JobStatus, allowed []models.JobStatus) bool {
	for _, a := range allowed {
		if status == a {
			return true
		}
	}
	return false
}

var _ Store = (*MemoryStore)(nil)
