package costing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renovatehq/sowgen/pkg/models"
)

func draftDoc() models.SoWDocument {
	return models.SoWDocument{
		ID:        "doc-1",
		ProjectID: "p1",
		Materials: []models.Material{
			{Name: "Ceramic wall tiles", Quantity: 12, Unit: "m2", EstimatedCost: 480},
			{Name: "Tile adhesive", Quantity: 4, Unit: "bag", EstimatedCost: 60},
			{Name: "Twin and earth cable", Quantity: 50, Unit: "m", EstimatedCost: 85},
			{Name: "Kitchen units", Quantity: 8, Unit: "each", EstimatedCost: 3200},
			{Name: "Mystery sundries", Quantity: 1, Unit: "lot", EstimatedCost: 100},
		},
		Labor: []models.LaborRequirement{
			{Trade: "electrician", Description: "first fix", PersonDays: 2},
			{Trade: "tiler", Description: "wall tiling", PersonDays: 3},
			{Trade: "ufo-wrangler", Description: "unknown trade", PersonDays: 1},
		},
	}
}

func TestClassifyMaterialRules(t *testing.T) {
	c := NewClassifier(nil)
	out := c.Classify(draftDoc())

	byName := make(map[string]models.MaterialCategory)
	for _, m := range out.Materials {
		byName[m.Name] = m.Category
	}

	assert.Equal(t, models.MaterialHomeownerProvided, byName["Ceramic wall tiles"])
	assert.Equal(t, models.MaterialHomeownerProvided, byName["Kitchen units"])
	assert.Equal(t, models.MaterialBuilderProvided, byName["Tile adhesive"],
		"adhesive keyword should win for consumables")
	assert.Equal(t, models.MaterialBuilderProvided, byName["Twin and earth cable"])
	assert.Equal(t, models.MaterialBuilderProvided, byName["Mystery sundries"],
		"unmatched materials default to builder-provided")
}

func TestClassifyLaborCosts(t *testing.T) {
	c := NewClassifier(nil)
	out := c.Classify(draftDoc())

	require.Len(t, out.Labor, 3)
	assert.Equal(t, 640.0, out.Labor[0].EstimatedCost, "2 days at electrician rate 320")
	assert.Equal(t, 810.0, out.Labor[1].EstimatedCost, "3 days at tiler rate 270")
	assert.Equal(t, 250.0, out.Labor[2].EstimatedCost, "unknown trades use the default rate")
}

func TestCostAdditivityInvariant(t *testing.T) {
	c := NewClassifier(nil)
	out := c.Classify(draftDoc())

	assert.Equal(t, out.Costs.TotalEstimate, out.Costs.LaborCosts+out.Costs.MaterialCosts)
	assert.Equal(t, out.Costs.MaterialCosts, out.Costs.BuilderMaterials+out.Costs.HomeownerMaterials)
	assert.Greater(t, out.Costs.TotalEstimate, 0.0)
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier(nil)
	first := c.Classify(draftDoc())
	second := c.Classify(draftDoc())

	assert.Equal(t, first, second, "same draft must classify identically")
}

func TestClassifyIdempotent(t *testing.T) {
	c := NewClassifier(nil)
	once := c.Classify(draftDoc())
	twice := c.Classify(once)

	assert.Equal(t, once, twice, "re-running the classifier must be a no-op")
}

func TestClassifyDoesNotMutateInput(t *testing.T) {
	c := NewClassifier(nil)
	in := draftDoc()
	_ = c.Classify(in)

	assert.Empty(t, in.Materials[0].Category, "input draft must not be mutated")
	assert.Zero(t, in.Labor[0].EstimatedCost)
}

func TestLoadDayRates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("day_rates:\n  electrician: 400\n  thatcher: 350\n"), 0644))

	rates, err := LoadDayRates(path)
	require.NoError(t, err)

	assert.Equal(t, 400.0, DayRate(rates, "Electrician"), "file overrides default")
	assert.Equal(t, 350.0, DayRate(rates, "thatcher"), "new trades are added")
	assert.Equal(t, 340.0, DayRate(rates, "plumber"), "untouched defaults remain")
}
