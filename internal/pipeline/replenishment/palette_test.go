package replenishment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

func calculate(t *testing.T, e *Engine, ds *domain.Dataset, days int) *domain.CalculationResult {
	t.Helper()
	res, err := e.Calculate(context.Background(), ds, perPeriod(days), nil)
	require.NoError(t, err)
	return res
}

func depotTotal(rows []domain.CalculationRow, depot string) int {
	total := 0
	for _, r := range rows {
		if r.Depot == depot {
			total += r.PalettesNeeded
		}
	}
	return total
}

func TestApplyPaletteOverride_RoundTrip(t *testing.T) {
	e := newTestEngine(t)
	base := calculate(t, e, dataset(
		order("M212", "A1", "verre", 100, 200, 30),
		order("M212", "B2", "pet", 30, 0, 30),
		order("M213", "A1", "verre", 60, 0, 30),
	), 10)

	sel := OverrideSelector{Depot: "M212", Article: "A1"}
	before, err := PalettesValue(base, sel)
	require.NoError(t, err)
	require.Equal(t, 27, before)

	next, err := e.ApplyPaletteOverride(base, sel, 12)
	require.NoError(t, err)

	got, err := PalettesValue(next, sel)
	require.NoError(t, err)
	assert.Equal(t, 12, got)

	row, _ := next.Row(domain.RowKey{Depot: "M212", Article: "A1", Packaging: "verre"})
	assert.Equal(t, 360.0, row.QuantityToSend)
	assert.True(t, row.Overridden)

	for _, d := range next.Summary.Depots {
		assert.Equal(t, depotTotal(next.Rows, d.Depot), d.TotalPalettes, d.Depot)
	}

	untouched, _ := base.Row(domain.RowKey{Depot: "M212", Article: "A1", Packaging: "verre"})
	assert.Equal(t, 27, untouched.PalettesNeeded, "the input result must not change")
	assert.False(t, untouched.Overridden)

	// other depots keep their aggregates; embedded suggestions follow the
	// central stock left after every committed row, overrides included
	m213Before, _ := base.Depot("M213")
	m213After, _ := next.Depot("M213")
	m213Before.Suggestions, m213After.Suggestions = nil, nil
	assert.Equal(t, m213Before, m213After)
}

func TestApplyPaletteOverride_IsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	base := calculate(t, e, dataset(order("M212", "A1", "verre", 100, 200, 30)), 10)
	sel := OverrideSelector{Depot: "M212", Article: "A1", Packaging: "VERRE"}

	once, err := e.ApplyPaletteOverride(base, sel, 5)
	require.NoError(t, err)
	twice, err := e.ApplyPaletteOverride(once, sel, 5)
	require.NoError(t, err)

	assert.Equal(t, once.Rows, twice.Rows)
	assert.Equal(t, once.Summary, twice.Summary)
}

func TestApplyPaletteOverride_FlipsTruckEfficiency(t *testing.T) {
	e := newTestEngine(t)
	base := calculate(t, e, dataset(
		order("M212", "A1", "verre", 540, 0, 30),
		order("M212", "B2", "pet", 0, 10, 30),
	), 1)

	d, ok := base.Depot("M212")
	require.True(t, ok)
	require.Equal(t, 18, d.TotalPalettes)
	require.Equal(t, domain.Inefficient, d.DeliveryEfficiency)

	next, err := e.ApplyPaletteOverride(base, OverrideSelector{Depot: "M212", Article: "B2"}, 6)
	require.NoError(t, err)

	d, _ = next.Depot("M212")
	assert.Equal(t, 24, d.TotalPalettes)
	assert.Equal(t, 1, d.TrucksNeeded)
	assert.Equal(t, domain.Efficient, d.DeliveryEfficiency)
	assert.Zero(t, d.PalettesToAdd)
	assert.Empty(t, d.Suggestions)

	for _, r := range next.Rows {
		assert.True(t, r.DeliveryEfficient)
	}

	b2, _ := next.Row(domain.RowKey{Depot: "M212", Article: "B2", Packaging: "pet"})
	assert.Equal(t, 180.0, b2.QuantityToSend)
	assert.Equal(t, domain.DeliveryToDeliver, b2.DeliveryStatus)
	assert.Equal(t, domain.PriorityOK, b2.Priority, "coverage is unchanged by an override")
}

func TestApplyPaletteOverride_ZeroPalettes(t *testing.T) {
	e := newTestEngine(t)
	base := calculate(t, e, dataset(order("M212", "A1", "verre", 100, 0, 30)), 1)

	next, err := e.ApplyPaletteOverride(base, OverrideSelector{Depot: "M212", Article: "A1"}, 0)
	require.NoError(t, err)

	row := next.Rows[0]
	assert.Zero(t, row.QuantityToSend)
	assert.Equal(t, domain.DeliveryOK, row.DeliveryStatus)
	assert.Equal(t, 1, next.Summary.Delivery.OK)
}

func TestApplyPaletteOverride_Errors(t *testing.T) {
	e := newTestEngine(t)
	base := calculate(t, e, dataset(
		order("M212", "A1", "verre", 100, 0, 30),
		order("M212", "A1", "pet", 100, 0, 30),
	), 1)

	_, err := e.ApplyPaletteOverride(base, OverrideSelector{Depot: "M212", Article: "A1"}, 3)
	var valErr *domain.ValidationError
	require.True(t, errors.As(err, &valErr), "ambiguous selector")
	assert.Equal(t, "packaging", valErr.Field)

	_, err = e.ApplyPaletteOverride(base, OverrideSelector{Depot: "M212", Article: "A1", Packaging: "pet"}, 3)
	assert.NoError(t, err)

	_, err = e.ApplyPaletteOverride(base, OverrideSelector{Depot: "M299", Article: "A1", Packaging: "pet"}, 3)
	assert.True(t, domain.IsValidation(err))

	_, err = e.ApplyPaletteOverride(base, OverrideSelector{Depot: "M212", Article: "A1", Packaging: "pet"}, -1)
	assert.True(t, domain.IsConfiguration(err))

	_, err = e.ApplyPaletteOverride(nil, OverrideSelector{Depot: "M212", Article: "A1"}, 1)
	assert.True(t, domain.IsValidation(err))
}

func TestDepotSummary_Trucks(t *testing.T) {
	e := newTestEngine(t)
	res := calculate(t, e, dataset(
		order("M212", "A1", "verre", 1500, 0, 30),
		order("M213", "A1", "verre", 720, 0, 30),
	), 1)

	m212, _ := res.Depot("M212")
	assert.Equal(t, 50, m212.TotalPalettes)
	assert.Equal(t, 3, m212.TrucksNeeded)
	assert.Equal(t, domain.Efficient, m212.DeliveryEfficiency)

	m213, _ := res.Depot("M213")
	assert.Equal(t, 24, m213.TotalPalettes)
	assert.Equal(t, domain.Efficient, m213.DeliveryEfficiency, "a full truck is efficient")

	assert.Equal(t, 4, res.Summary.TotalTrucks)
	assert.Equal(t, 2, res.Summary.EfficientDepots)
}

func TestSuggestDepotCompletion_InefficientDepot(t *testing.T) {
	e := newTestEngine(t)
	ds := withInventory(
		dataset(
			order("M212", "A1", "verre", 540, 0, 30),
			order("M213", "C3", "pet", 10, 0, 20),
		),
		central("A1", 10000),
		central("B2", 600),
		central("C3", 15),
	)
	res := calculate(t, e, ds, 1)

	d, _ := res.Depot("M212")
	require.Equal(t, 18, d.TotalPalettes)
	assert.Equal(t, domain.Inefficient, d.DeliveryEfficiency)
	assert.Equal(t, 6, d.PalettesToAdd)
	assert.Equal(t, 24, d.TargetPalettes)
	require.NotEmpty(t, d.Suggestions, "suggestions are embedded in the summary")

	completion, err := e.SuggestDepotCompletion(res, "M212")
	require.NoError(t, err)
	assert.Equal(t, 18, completion.CurrentPalettes)
	assert.Equal(t, 6, completion.PalettesToAdd)
	require.NotEmpty(t, completion.Suggestions)

	first := completion.Suggestions[0]
	assert.Equal(t, "B2", first.Article, "lowest central stock among feasible candidates")
	assert.True(t, first.CanFulfill)
	assert.Equal(t, domain.Feasible, first.Feasibility)
	assert.Equal(t, "Réalisable", first.FeasibilityText)
	assert.Equal(t, 6, first.SuggestedPalettes)
	assert.Equal(t, 180.0, first.SuggestedQuantity)
	assert.False(t, first.InDepotOrder)

	feasible := 0
	for _, s := range completion.Suggestions {
		if s.CanFulfill {
			feasible += s.SuggestedPalettes
		}
	}
	assert.Equal(t, 6, feasible)
	assert.Equal(t, d.Suggestions, completion.Suggestions)
}

func TestSuggestDepotCompletion_InfeasibleCandidates(t *testing.T) {
	e := newTestEngine(t)
	ds := withInventory(
		dataset(order("M212", "A1", "verre", 300, 0, 30)),
		central("A1", 310),
		central("B2", 10),
	)
	res := calculate(t, e, ds, 1)

	completion, err := e.SuggestDepotCompletion(res, "M212")
	require.NoError(t, err)
	require.Equal(t, 14, completion.PalettesToAdd)
	require.Len(t, completion.Suggestions, 2)

	for _, s := range completion.Suggestions {
		assert.False(t, s.CanFulfill, s.Article)
		assert.Equal(t, domain.InsufficientStock, s.Feasibility)
		assert.Equal(t, "Stock insuffisant", s.FeasibilityText)
		assert.Equal(t, 14, s.SuggestedPalettes)
	}
	assert.Equal(t, "B2", completion.Suggestions[0].Article)
	assert.True(t, completion.Suggestions[1].InDepotOrder)
}

func TestSuggestDepotCompletion_EfficientAndUnknownDepot(t *testing.T) {
	e := newTestEngine(t)
	res := calculate(t, e, withInventory(dataset(order("M212", "A1", "verre", 900, 0, 30)), central("B2", 5000)), 1)

	completion, err := e.SuggestDepotCompletion(res, "M212")
	require.NoError(t, err)
	assert.Equal(t, domain.Efficient, completion.Efficiency)
	assert.Empty(t, completion.Suggestions)

	_, err = e.SuggestDepotCompletion(res, "M999")
	assert.True(t, domain.IsValidation(err))
}

func TestSuggestDepotCompletion_NothingToShip(t *testing.T) {
	e := newTestEngine(t)
	ds := withInventory(
		dataset(
			order("M212", "A1", "verre", 10, 500, 30),
			order("M213", "A1", "verre", 300, 0, 30),
		),
		central("A1", 10000),
		central("B2", 600),
	)
	res := calculate(t, e, ds, 1)

	d, _ := res.Depot("M212")
	require.Zero(t, d.TotalPalettes)
	assert.Equal(t, domain.Inefficient, d.DeliveryEfficiency)
	assert.Empty(t, d.Suggestions)

	completion, err := e.SuggestDepotCompletion(res, "M212")
	require.NoError(t, err)
	assert.Zero(t, completion.CurrentPalettes)
	assert.Empty(t, completion.Suggestions)

	busy, _ := res.Depot("M213")
	require.Equal(t, 10, busy.TotalPalettes)
	assert.NotEmpty(t, busy.Suggestions)
}

func TestSuggestions_RespectMaxSuggestions(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.MaxSuggestions = 2 })
	ds := withInventory(
		dataset(order("M212", "A1", "verre", 30, 0, 30)),
		central("B1", 40), central("B2", 50), central("B3", 60), central("B4", 70),
	)
	res := calculate(t, e, ds, 1)

	completion, err := e.SuggestDepotCompletion(res, "M212")
	require.NoError(t, err)
	require.Len(t, completion.Suggestions, 2)
	assert.Equal(t, "B1", completion.Suggestions[0].Article)
	assert.Equal(t, "B2", completion.Suggestions[1].Article)
}
