// Package notify carries the "scope of work ready" signal to whatever
// delivery channel the surrounding application wires in. The actual send
// is external; the default implementation only logs.
package notify

import (
	"log"

	"github.com/renovatehq/sowgen/pkg/models"
)

// ReadyEvent is the payload emitted when a generation job completes.
type ReadyEvent struct {
	// ProjectID is the project the document was generated for.
	ProjectID string `json:"project_id"`
	// JobID is the completed job.
	JobID string `json:"job_id"`
	// TotalEstimate is the document's total cost estimate.
	TotalEstimate float64 `json:"total_estimate"`
	// TotalDuration is the schedule length in days.
	TotalDuration int `json:"total_duration"`
}

// Notifier delivers ready events.
type Notifier interface {
	// SoWReady is called once per completed job. Prefs may be nil when the
	// homeowner opted out; implementations decide what that means.
	SoWReady(prefs *models.NotificationPrefs, event ReadyEvent)
}

// LogNotifier logs ready events instead of sending them.
type LogNotifier struct{}

// SoWReady implements Notifier.
func (LogNotifier) SoWReady(prefs *models.NotificationPrefs, event ReadyEvent) {
	channel := "none"
	if prefs != nil {
		channel = string(prefs.PreferredMethod)
	}
	log.Printf("[notify] project %s job %s ready: £%.2f over %d days (channel %s)",
		event.ProjectID, event.JobID, event.TotalEstimate, event.TotalDuration, channel)
}
