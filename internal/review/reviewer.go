// Package review runs the quality review pass over a finished scope of work
// and turns selected recommendations into a modification request.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/renovatehq/sowgen/pkg/models"
)

// ErrReviewFailed wraps transport or parse failures from the review pass.
var ErrReviewFailed = errors.New("review failed")

// ErrUnknownRecommendation is returned when a selected recommendation id is
// not present in the analysis.
var ErrUnknownRecommendation = errors.New("unknown recommendation")

// Runner is the completion transport for review invocations.
type Runner interface {
	// Complete sends one single-turn request and returns the response text.
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Reviewer scores finished documents through a builder-review invocation.
type Reviewer struct {
	runner Runner
}

// NewReviewer creates a Reviewer over the given runner.
func NewReviewer(runner Runner) *Reviewer {
	return &Reviewer{runner: runner}
}

// Review runs the builder review against a finished document and its schedule.
// The returned analysis is a fresh record: a later regeneration supersedes it,
// it is never mutated in place.
func (r *Reviewer) Review(ctx context.Context, project models.ProjectContext, doc models.SoWDocument, chart models.GanttChart) (*models.BuilderReviewAnalysis, error) {
	text, err := r.runner.Complete(ctx, reviewSystemPrompt(project.Type), reviewUserPrompt(doc, chart))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReviewFailed, err)
	}

	issues, recs, err := parseReview(text)
	if err != nil {
		return nil, err
	}

	analysis := buildAnalysis(doc, issues, recs)
	log.Printf("[review] project %s v%d: score %d (%s), %d issues, %d recommendations",
		doc.ProjectID, doc.Version, analysis.Score, analysis.Quality,
		len(analysis.Issues), len(analysis.Recommendations))
	return analysis, nil
}

// reviewPayload is the JSON structure the reviewer is instructed to reply with.
type reviewPayload struct {
	Issues []struct {
		Severity    string `json:"severity"`
		Category    string `json:"category"`
		Location    string `json:"location"`
		Description string `json:"description"`
		Impact      string `json:"impact"`
	} `json:"issues"`
	Recommendations []struct {
		Priority   string `json:"priority"`
		Issue      int    `json:"issue"`
		Suggestion string `json:"suggestion"`
		Rationale  string `json:"rationale"`
	} `json:"recommendations"`
}

// parseReview extracts issues and recommendations from the raw response.
// Unlike specialist invocations there is no free-text fallback: an
// unparseable review is a failed review.
func parseReview(text string) ([]models.Issue, []models.Recommendation, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, nil, fmt.Errorf("%w: no JSON payload in response", ErrReviewFailed)
	}

	var payload reviewPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrReviewFailed, err)
	}

	issues := make([]models.Issue, 0, len(payload.Issues))
	for _, in := range payload.Issues {
		severity := models.IssueSeverity(strings.ToLower(in.Severity))
		if !severity.Valid() {
			severity = models.SeverityMinor
		}
		issues = append(issues, models.Issue{
			Severity:    severity,
			Category:    strings.ToLower(in.Category),
			Location:    in.Location,
			Description: in.Description,
			Impact:      in.Impact,
		})
	}

	recs := make([]models.Recommendation, 0, len(payload.Recommendations))
	for _, in := range payload.Recommendations {
		priority := models.RecommendationPriority(strings.ToLower(in.Priority))
		if priority != models.PriorityHigh && priority != models.PriorityMedium && priority != models.PriorityLow {
			priority = models.PriorityLow
		}
		rec := models.Recommendation{
			Priority:   priority,
			Suggestion: in.Suggestion,
			Rationale:  in.Rationale,
		}
		if in.Issue >= 1 && in.Issue <= len(issues) {
			rec.IssueID = fmt.Sprintf("i%d", in.Issue)
		}
		recs = append(recs, rec)
	}
	return issues, recs, nil
}

// buildAnalysis orders the findings, assigns ids, scores, and derives the
// per-category flag lists.
func buildAnalysis(doc models.SoWDocument, issues []models.Issue, recs []models.Recommendation) *models.BuilderReviewAnalysis {
	// Issues ordered most severe first, recommendations highest priority
	// first; both stable so the reviewer's own ordering breaks ties.
	sort.SliceStable(issues, func(i, j int) bool {
		return severityRank(issues[i].Severity) < severityRank(issues[j].Severity)
	})
	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank(recs[i].Priority) < priorityRank(recs[j].Priority)
	})
	for i := range issues {
		issues[i].ID = fmt.Sprintf("i%d", i+1)
	}
	for i := range recs {
		recs[i].ID = fmt.Sprintf("r%d", i+1)
	}

	analysis := &models.BuilderReviewAnalysis{
		ID:              uuid.New().String(),
		ProjectID:       doc.ProjectID,
		SoWVersion:      doc.Version,
		Score:           Score(issues),
		Issues:          issues,
		Recommendations: recs,
		CreatedAt:       time.Now().UTC(),
	}
	analysis.Quality = QualityBand(analysis.Score)

	for _, issue := range issues {
		flag := issue.Description
		if issue.Location != "" {
			flag = issue.Location + ": " + issue.Description
		}
		switch issue.Category {
		case "missing_element":
			analysis.MissingElements = append(analysis.MissingElements, flag)
		case "unrealistic_spec":
			analysis.UnrealisticSpecs = append(analysis.UnrealisticSpecs, flag)
		case "regulatory":
			analysis.RegulatoryIssues = append(analysis.RegulatoryIssues, flag)
		case "cost_accuracy":
			analysis.CostIssues = append(analysis.CostIssues, flag)
		case "timeline":
			analysis.TimelineIssues = append(analysis.TimelineIssues, flag)
		}
	}
	return analysis
}

// BuildModificationRequest turns selected recommendations into a modification
// request for a new generation pass. It never triggers the pass itself; the
// caller submits the request as a new job explicitly.
func BuildModificationRequest(analysis *models.BuilderReviewAnalysis, sowID string, recommendationIDs []string) (models.ModificationRequest, error) {
	if len(recommendationIDs) == 0 {
		return models.ModificationRequest{}, fmt.Errorf("%w: no recommendations selected", ErrUnknownRecommendation)
	}

	req := models.ModificationRequest{
		ProjectID:     analysis.ProjectID,
		SoWID:         sowID,
		Modifications: make(map[string]string, len(recommendationIDs)),
		Reason:        fmt.Sprintf("Applying %d review recommendations (score %d, %s)", len(recommendationIDs), analysis.Score, analysis.Quality),
	}
	for _, id := range recommendationIDs {
		rec := analysis.RecommendationByID(id)
		if rec == nil {
			return models.ModificationRequest{}, fmt.Errorf("%w: %s", ErrUnknownRecommendation, id)
		}
		key := rec.IssueID
		if key == "" {
			key = rec.ID
		}
		if issue := issueByID(analysis, rec.IssueID); issue != nil && issue.Location != "" {
			key = issue.Location
		}
		req.Modifications[key] = rec.Suggestion
	}
	return req, nil
}

func issueByID(analysis *models.BuilderReviewAnalysis, id string) *models.Issue {
	for i := range analysis.Issues {
		if analysis.Issues[i].ID == id {
			return &analysis.Issues[i]
		}
	}
	return nil
}

func severityRank(s models.IssueSeverity) int {
	switch s {
	case models.SeverityCritical:
		return 0
	case models.SeverityMajor:
		return 1
	default:
		return 2
	}
}

func priorityRank(p models.RecommendationPriority) int {
	switch p {
	case models.PriorityHigh:
		return 0
	case models.PriorityMedium:
		return 1
	default:
		return 2
	}
}

// extractJSON returns the outermost JSON object in the text, tolerating
// markdown code fences around it.
func extractJSON(text string) string {
	cleaned := text
	if strings.Contains(cleaned, "```") {
		cleaned = strings.ReplaceAll(cleaned, "```json", "")
		cleaned = strings.ReplaceAll(cleaned, "```", "")
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return ""
	}
	return cleaned[start : end+1]
}
