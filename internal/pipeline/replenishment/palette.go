package replenishment

import (
	"sort"
	"strings"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

// OverrideSelector designates the row receiving a manual palette count.
// Packaging may be left empty when the depot orders the article in a single
// packaging.
type OverrideSelector struct {
	Depot     string `json:"depot"`
	Article   string `json:"article"`
	Packaging string `json:"packaging,omitempty"`
}

func (s OverrideSelector) normalized() OverrideSelector {
	return OverrideSelector{
		Depot:     strings.TrimSpace(s.Depot),
		Article:   strings.TrimSpace(s.Article),
		Packaging: normalizePackaging(s.Packaging),
	}
}

// locateRow returns the index of the single row matched by sel.
func locateRow(rows []domain.CalculationRow, sel OverrideSelector) (int, error) {
	sel = sel.normalized()
	if sel.Depot == "" || sel.Article == "" {
		return -1, domain.NewValidationError("row", "depot and article are required")
	}

	match := -1
	for i, row := range rows {
		if row.Depot != sel.Depot || row.Article != sel.Article {
			continue
		}
		if sel.Packaging != "" && row.Packaging != sel.Packaging {
			continue
		}
		if match >= 0 {
			return -1, domain.NewValidationError("packaging", "article %s is ordered in several packagings at %s, packaging is required", sel.Article, sel.Depot)
		}
		match = i
	}
	if match < 0 {
		return -1, domain.NewValidationError("row", "no row for article %s at depot %s", sel.Article, sel.Depot)
	}
	return match, nil
}

// ApplyPaletteOverride returns a new result where the selected row ships
// exactly palettes pallets. The input result is left untouched and applying
// the same override twice gives the same result.
func (e *Engine) ApplyPaletteOverride(result *domain.CalculationResult, sel OverrideSelector, palettes int) (*domain.CalculationResult, error) {
	if result == nil {
		return nil, domain.NewValidationError("calculation", "no calculation to override")
	}
	if palettes < 0 {
		return nil, domain.NewConfigurationError("palettes", "must not be negative, got %d", palettes)
	}

	idx, err := locateRow(result.Rows, sel)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.CalculationRow, len(result.Rows))
	copy(rows, result.Rows)

	row := &rows[idx]
	row.PalettesNeeded = palettes
	row.QuantityToSend = mulQty(palettes, row.UnitsPerPallet)
	row.Overridden = true
	e.thresholds.classifyOverride(row, result.HasInventoryData)

	next := *result
	next.Rows = rows
	next.Summary = e.finalize(rows, result.CentralStock)
	return &next, nil
}

// classifyOverride refreshes the statuses that depend on the quantity to
// send. Sourcing does not change with the pallet count.
func (c *Classifier) classifyOverride(row *domain.CalculationRow, inventoryLoaded bool) {
	row.Priority = c.Priority(row.DaysOfCoverage)
	row.InventoryStatus = InventoryStatus(row.QuantityToSend, row.CentralStockAvailable, row.HasInventoryData)
	row.DeliveryStatus = DeliveryStatus(row.QuantityToSend, row.InventoryStatus, inventoryLoaded)
	row.DeliveryStatusText = row.DeliveryStatus.Label()
}

// PalettesValue reads the current pallet count of a row.
func PalettesValue(result *domain.CalculationResult, sel OverrideSelector) (int, error) {
	if result == nil {
		return 0, domain.NewValidationError("calculation", "no calculation available")
	}
	idx, err := locateRow(result.Rows, sel)
	if err != nil {
		return 0, err
	}
	return result.Rows[idx].PalettesNeeded, nil
}

// depotSummaries groups rows per depot and rates each truck load. Rows are
// only read.
func (e *Engine) depotSummaries(rows []domain.CalculationRow) []domain.DepotSummary {
	byDepot := make(map[string]*domain.DepotSummary)
	for _, row := range rows {
		s, ok := byDepot[row.Depot]
		if !ok {
			s = &domain.DepotSummary{Depot: row.Depot}
			byDepot[row.Depot] = s
		}
		s.TotalPalettes += row.PalettesNeeded
		s.TotalQuantity += row.QuantityToSend
		s.RowCount++
	}

	full := e.cfg.FullTruckPallets
	out := make([]domain.DepotSummary, 0, len(byDepot))
	for _, s := range byDepot {
		s.TotalQuantity = roundFloat(s.TotalQuantity, 2)
		s.TrucksNeeded = ceilDiv(float64(s.TotalPalettes), float64(full))
		if s.TotalPalettes >= full {
			s.DeliveryEfficiency = domain.Efficient
			s.TargetPalettes = s.TotalPalettes
		} else {
			s.DeliveryEfficiency = domain.Inefficient
			s.TargetPalettes = full
			s.PalettesToAdd = full - s.TotalPalettes
		}
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Depot < out[j].Depot })
	return out
}
