// Package costing is the deterministic cost and material classification stage.
package costing

import (
	"math"
	"strings"

	"github.com/renovatehq/sowgen/pkg/models"
)

// homeownerKeywords mark fixtures and fittings the homeowner customarily
// chooses and buys.
var homeownerKeywords = []string{
	"tile", "worktop", "cabinet", "unit", "appliance", "oven", "hob",
	"extractor", "sink", "tap", "basin", "toilet", "bath", "shower",
	"radiator", "light fitting", "lamp", "flooring", "laminate", "carpet",
	"door", "handle", "wardrobe", "mirror", "splashback", "fireplace",
}

// builderKeywords mark consumables and fixings the trade customarily sources.
var builderKeywords = []string{
	"cement", "sand", "aggregate", "plaster", "plasterboard", "adhesive",
	"grout", "sealant", "silicone", "screw", "nail", "fixing", "cable",
	"wire", "conduit", "pipe", "fitting", "solder", "timber", "batten",
	"stud", "insulation", "membrane", "dpc", "skip", "paint", "primer",
	"filler", "waste",
}

// Classifier computes material classification and cost summaries.
// It is a pure function over the draft: the same input always yields the
// same output, and running it twice is a no-op.
type Classifier struct {
	rates map[string]float64
}

// NewClassifier creates a Classifier with the given day rates.
// Nil rates fall back to the defaults.
func NewClassifier(rates map[string]float64) *Classifier {
	if rates == nil {
		rates = DefaultDayRates()
	}
	return &Classifier{rates: rates}
}

// Classify returns a copy of the draft with every material categorized,
// every labor entry costed, and the estimate summary recomputed.
// The input document is not modified.
func (c *Classifier) Classify(doc models.SoWDocument) models.SoWDocument {
	out := doc
	out.Materials = append([]models.Material(nil), doc.Materials...)
	out.Labor = append([]models.LaborRequirement(nil), doc.Labor...)

	for i := range out.Materials {
		out.Materials[i].Category = classifyMaterial(out.Materials[i].Name)
		out.Materials[i].EstimatedCost = round2(out.Materials[i].EstimatedCost)
	}

	for i := range out.Labor {
		rate := DayRate(c.rates, out.Labor[i].Trade)
		out.Labor[i].EstimatedCost = round2(out.Labor[i].PersonDays * rate)
	}

	out.Costs = summarize(out)
	return out
}

// classifyMaterial applies the fixed keyword rule set. Homeowner keywords
// win over builder keywords; unmatched materials default to builder-provided
// since trades source unnamed sundries.
func classifyMaterial(name string) models.MaterialCategory {
	lower := strings.ToLower(name)
	for _, kw := range homeownerKeywords {
		if strings.Contains(lower, kw) {
			return models.MaterialHomeownerProvided
		}
	}
	for _, kw := range builderKeywords {
		if strings.Contains(lower, kw) {
			return models.MaterialBuilderProvided
		}
	}
	return models.MaterialBuilderProvided
}

// summarize recomputes the cost summary by summation, preserving the
// additivity invariant: total = labor + materials, materials = builder +
// homeowner.
func summarize(doc models.SoWDocument) models.EstimatedCosts {
	var costs models.EstimatedCosts
	for _, l := range doc.Labor {
		costs.LaborCosts += l.EstimatedCost
	}
	for _, m := range doc.Materials {
		switch m.Category {
		case models.MaterialHomeownerProvided:
			costs.HomeownerMaterials += m.EstimatedCost
		default:
			costs.BuilderMaterials += m.EstimatedCost
		}
	}
	costs.LaborCosts = round2(costs.LaborCosts)
	costs.BuilderMaterials = round2(costs.BuilderMaterials)
	costs.HomeownerMaterials = round2(costs.HomeownerMaterials)
	costs.MaterialCosts = round2(costs.BuilderMaterials + costs.HomeownerMaterials)
	costs.TotalEstimate = round2(costs.LaborCosts + costs.MaterialCosts)
	return costs
}

// round2 rounds to whole pence to keep repeated runs byte-identical.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
