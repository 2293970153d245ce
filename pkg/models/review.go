package models

import "time"

// IssueSeverity ranks how serious a review issue is.
type IssueSeverity string

const (
	// SeverityCritical issues make the document unusable as written.
	SeverityCritical IssueSeverity = "critical"
	// SeverityMajor issues need fixing before work starts.
	SeverityMajor IssueSeverity = "major"
	// SeverityMinor issues are worth fixing but not blocking.
	SeverityMinor IssueSeverity = "minor"
)

// Valid returns true if the severity is a known value.
func (s IssueSeverity) Valid() bool {
	return s == SeverityCritical || s == SeverityMajor || s == SeverityMinor
}

// RecommendationPriority ranks a recommendation.
type RecommendationPriority string

const (
	// PriorityHigh recommendations should be applied first.
	PriorityHigh RecommendationPriority = "high"
	// PriorityMedium recommendations are worthwhile improvements.
	PriorityMedium RecommendationPriority = "medium"
	// PriorityLow recommendations are nice-to-haves.
	PriorityLow RecommendationPriority = "low"
)

// QualityIndicator is the banded quality classification of a score.
type QualityIndicator string

const (
	// QualityExcellent is a score of 90 or above.
	QualityExcellent QualityIndicator = "excellent"
	// QualityGood is a score of 75 to 89.
	QualityGood QualityIndicator = "good"
	// QualityNeedsImprovement is a score of 50 to 74.
	QualityNeedsImprovement QualityIndicator = "needs_improvement"
	// QualityPoor is a score below 50.
	QualityPoor QualityIndicator = "poor"
)

// Issue is one problem found during review.
type Issue struct {
	// ID is the issue identifier within the analysis.
	ID string `json:"id"`
	// Severity is the issue severity.
	Severity IssueSeverity `json:"severity"`
	// Category classifies the issue (missing_element, unrealistic_spec,
	// regulatory, cost_accuracy, timeline).
	Category string `json:"category"`
	// Location points at the affected section, material or task.
	Location string `json:"location,omitempty"`
	// Description explains the problem.
	Description string `json:"description"`
	// Impact explains the consequence of leaving it unfixed.
	Impact string `json:"impact,omitempty"`
}

// Recommendation is one suggested improvement, linked to an issue.
type Recommendation struct {
	// ID is the recommendation identifier within the analysis.
	ID string `json:"id"`
	// Priority ranks the recommendation.
	Priority RecommendationPriority `json:"priority"`
	// IssueID links back to the issue this addresses.
	IssueID string `json:"issue_id,omitempty"`
	// Suggestion is the replacement or additional text to apply.
	Suggestion string `json:"suggestion"`
	// Rationale explains why the change helps.
	Rationale string `json:"rationale,omitempty"`
}

// BuilderReviewAnalysis is the quality review of one document version.
// A regeneration supersedes the analysis; it is never mutated in place.
type BuilderReviewAnalysis struct {
	// ID is the unique analysis identifier.
	ID string `json:"id"`
	// ProjectID is the reviewed project.
	ProjectID string `json:"project_id"`
	// SoWVersion is the document version that was reviewed.
	SoWVersion int `json:"sow_version"`
	// Score is 0-100, derived from weighted issue deductions.
	Score int `json:"score"`
	// Quality is the banded classification of Score.
	Quality QualityIndicator `json:"quality"`
	// Issues is the ordered issue list.
	Issues []Issue `json:"issues"`
	// Recommendations is the ordered, ranked recommendation list.
	Recommendations []Recommendation `json:"recommendations"`
	// MissingElements lists work the document should cover but doesn't.
	MissingElements []string `json:"missing_elements,omitempty"`
	// UnrealisticSpecs lists specifications flagged as unrealistic.
	UnrealisticSpecs []string `json:"unrealistic_specs,omitempty"`
	// RegulatoryIssues lists regulatory problems.
	RegulatoryIssues []string `json:"regulatory_issues,omitempty"`
	// CostIssues lists cost-accuracy problems.
	CostIssues []string `json:"cost_issues,omitempty"`
	// TimelineIssues lists schedule problems.
	TimelineIssues []string `json:"timeline_issues,omitempty"`
	// CreatedAt is when the analysis was produced.
	CreatedAt time.Time `json:"created_at"`
}

// RecommendationByID returns the recommendation with the given ID, or nil.
func (a *BuilderReviewAnalysis) RecommendationByID(id string) *Recommendation {
	for i := range a.Recommendations {
		if a.Recommendations[i].ID == id {
			return &a.Recommendations[i]
		}
	}
	return nil
}
