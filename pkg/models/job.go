package models

import "time"

// JobStatus represents the lifecycle state of a generation job.
type JobStatus string

const (
	// JobStatusQueued indicates the job has been accepted but not started.
	JobStatusQueued JobStatus = "queued"
	// JobStatusProcessing indicates the pipeline is running.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates the job finished with a result.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job finished without a result.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status permits no further mutation.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// GenerationResult is the payload attached to a completed job, exactly once.
type GenerationResult struct {
	// SoWDocument is the generated scope-of-work.
	SoWDocument SoWDocument `json:"sow_document"`
	// GanttChart is the optimized schedule for the document.
	GanttChart GanttChart `json:"gantt_chart"`
	// AgentsUsed lists the IDs of every agent that contributed.
	AgentsUsed []string `json:"agents_used"`
	// ProcessingTime is how long the pipeline ran.
	ProcessingTime time.Duration `json:"processing_time"`
}

// SoWGenerationJob is the job record owned by the job manager.
// Progress is monotonically non-decreasing while the job is active, and the
// record is immutable once Status is terminal.
type SoWGenerationJob struct {
	// ID is the unique job identifier.
	ID string `json:"id"`
	// ProjectID is the project the job generates for.
	ProjectID string `json:"project_id"`
	// Status is the lifecycle state.
	Status JobStatus `json:"status"`
	// Progress is 0-100. It reaches exactly 100 only on completion.
	Progress int `json:"progress"`
	// Stage names the pipeline stage currently running.
	Stage string `json:"stage,omitempty"`
	// StartedAt is when the job was created.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the job reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Error is the human-readable failure message for failed jobs.
	Error string `json:"error,omitempty"`
	// Result is populated exactly once, on completion.
	Result *GenerationResult `json:"result,omitempty"`
}

// NotificationMethod is how the homeowner wants the ready signal delivered.
type NotificationMethod string

const (
	// NotifyEmail delivers the ready signal by email.
	NotifyEmail NotificationMethod = "email"
	// NotifySMS delivers the ready signal by SMS.
	NotifySMS NotificationMethod = "sms"
)

// NotificationPrefs records where the ready signal should go.
// The actual send is performed by an external collaborator.
type NotificationPrefs struct {
	// PreferredMethod selects the delivery channel.
	PreferredMethod NotificationMethod `json:"preferred_method"`
	// Address is the email address or phone number.
	Address string `json:"address"`
}

// GenerationRequest is the inbound request that starts a generation job.
type GenerationRequest struct {
	// Context is the immutable project input.
	Context ProjectContext `json:"context"`
	// Notifications records where the ready signal goes. Optional.
	Notifications *NotificationPrefs `json:"notifications,omitempty"`
}

// ModificationRequest asks for a regeneration of an existing scope-of-work.
// It always produces a new job; terminal jobs are never mutated.
type ModificationRequest struct {
	// ProjectID is the project whose document is being modified.
	ProjectID string `json:"project_id"`
	// SoWID is the document version the modifications are against.
	SoWID string `json:"sow_id"`
	// Modifications are answer overrides and change instructions merged
	// into the project context for the new pass.
	Modifications map[string]string `json:"modifications"`
	// Reason records why the modification was requested.
	Reason string `json:"reason,omitempty"`
}

// JobTicket is returned synchronously when a job is accepted.
type JobTicket struct {
	// JobID identifies the created job.
	JobID string `json:"job_id"`
	// EstimatedCompletion is when the job is expected to finish.
	EstimatedCompletion time.Time `json:"estimated_completion"`
}
