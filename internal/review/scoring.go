package review

import "github.com/renovatehq/sowgen/pkg/models"

// Deduction weights per issue severity.
const (
	criticalDeduction = 15
	majorDeduction    = 8
	minorDeduction    = 3
)

// Score computes the 0-100 review score from weighted issue deductions.
func Score(issues []models.Issue) int {
	score := 100
	for _, issue := range issues {
		switch issue.Severity {
		case models.SeverityCritical:
			score -= criticalDeduction
		case models.SeverityMajor:
			score -= majorDeduction
		case models.SeverityMinor:
			score -= minorDeduction
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// QualityBand maps a score onto its quality indicator.
func QualityBand(score int) models.QualityIndicator {
	switch {
	case score >= 90:
		return models.QualityExcellent
	case score >= 75:
		return models.QualityGood
	case score >= 50:
		return models.QualityNeedsImprovement
	default:
		return models.QualityPoor
	}
}
