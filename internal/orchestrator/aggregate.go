package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/renovatehq/sowgen/pkg/models"
)

// Aggregate merges agent responses into one draft document, in response
// order. Sections are deduplicated by title; materials are merged by name;
// labor entries are merged by trade and description. Section IDs are
// assigned here and title-based dependency references are resolved to them.
// The draft carries no version; the job store assigns one when it persists
// the document.
func Aggregate(projectID string, responses []models.AgentResponse) models.SoWDocument {
	doc := models.SoWDocument{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		GeneratedAt: time.Now().UTC(),
	}

	sectionIdx := make(map[string]int) // normalized title -> index in doc.Sections
	materialIdx := make(map[string]int)
	laborIdx := make(map[string]int)

	for _, resp := range responses {
		for _, s := range resp.Sections {
			key := normalize(s.Title)
			if key == "" {
				continue
			}
			if i, ok := sectionIdx[key]; ok {
				merged := &doc.Sections[i]
				if merged.Description == "" {
					merged.Description = s.Description
				}
				merged.Specifications = appendUnique(merged.Specifications, s.Specifications)
				merged.DependsOn = appendUnique(merged.DependsOn, s.DependsOn)
				continue
			}
			s.ID = fmt.Sprintf("s%d", len(doc.Sections)+1)
			sectionIdx[key] = len(doc.Sections)
			doc.Sections = append(doc.Sections, s)
		}

		for _, m := range resp.Materials {
			key := normalize(m.Name)
			if key == "" {
				continue
			}
			if i, ok := materialIdx[key]; ok {
				doc.Materials[i].Quantity += m.Quantity
				doc.Materials[i].EstimatedCost += m.EstimatedCost
				continue
			}
			materialIdx[key] = len(doc.Materials)
			doc.Materials = append(doc.Materials, m)
		}

		for _, l := range resp.Labor {
			key := normalize(l.Trade) + "|" + normalize(l.Description)
			if i, ok := laborIdx[key]; ok {
				doc.Labor[i].PersonDays += l.PersonDays
				doc.Labor[i].Qualifications = appendUnique(doc.Labor[i].Qualifications, l.Qualifications)
				continue
			}
			laborIdx[key] = len(doc.Labor)
			doc.Labor = append(doc.Labor, l)
		}
	}

	resolveSectionRefs(&doc, sectionIdx)
	return doc
}

// resolveSectionRefs rewrites title-based references (section DependsOn and
// labor SectionID, as produced by agents) into assigned section IDs.
// Unresolvable references are dropped.
func resolveSectionRefs(doc *models.SoWDocument, sectionIdx map[string]int) {
	idFor := func(ref string) string {
		// Already an assigned ID.
		for i := range doc.Sections {
			if doc.Sections[i].ID == ref {
				return ref
			}
		}
		if i, ok := sectionIdx[normalize(ref)]; ok {
			return doc.Sections[i].ID
		}
		return ""
	}

	for i := range doc.Sections {
		var deps []string
		for _, ref := range doc.Sections[i].DependsOn {
			if id := idFor(ref); id != "" && id != doc.Sections[i].ID {
				deps = append(deps, id)
			}
		}
		doc.Sections[i].DependsOn = deps
	}

	for i := range doc.Labor {
		doc.Labor[i].SectionID = idFor(doc.Labor[i].SectionID)
	}
}

// normalize lower-cases and trims a merge key.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// appendUnique appends items not already present, preserving order.
func appendUnique(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[normalize(s)] = true
	}
	for _, s := range src {
		if key := normalize(s); key != "" && !seen[key] {
			seen[key] = true
			dst = append(dst, s)
		}
	}
	return dst
}
