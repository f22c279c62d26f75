package replenishment

import (
	"strings"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

const (
	minDaysToCover = 1
	maxDaysToCover = 365
)

// centralStock is the central warehouse position per article with the
// production plan already added.
type centralStock struct {
	available map[string]float64
	loaded    bool
}

func buildCentralStock(code string, inventory []domain.InventoryRecord, hasInventory bool, plan []domain.ProductionPlanEntry) centralStock {
	cs := centralStock{
		available: make(map[string]float64),
		loaded:    hasInventory || len(plan) > 0,
	}
	for _, inv := range inventory {
		if strings.TrimSpace(inv.Division) != code {
			continue
		}
		cs.available[strings.TrimSpace(inv.Article)] += inv.StockOnHand
	}
	for _, p := range plan {
		cs.available[strings.TrimSpace(p.Article)] += p.Quantity
	}
	return cs
}

func (cs centralStock) lookup(article string) (float64, bool) {
	v, ok := cs.available[article]
	return v, ok
}

// validateRequest rejects parameters before any record is touched.
func validateRequest(req domain.CalculationRequest) error {
	if req.Days < minDaysToCover || req.Days > maxDaysToCover {
		return domain.NewConfigurationError("days", "must be between %d and %d, got %d", minDaysToCover, maxDaysToCover, req.Days)
	}
	if req.Mode == "" {
		return domain.NewConfigurationError("mode", "consumption mode is required (%s or %s)", domain.ModePerPeriod, domain.ModeDailyAverage)
	}
	if !req.Mode.Valid() {
		return domain.NewConfigurationError("mode", "unknown consumption mode %q", req.Mode)
	}
	if req.Filters.Packaging != nil && len(req.Filters.Packaging) == 0 {
		return domain.NewConfigurationError("packaging filter", "selects no packaging type")
	}
	for _, p := range req.ProductionPlan {
		if strings.TrimSpace(p.Article) == "" {
			return domain.NewConfigurationError("production plan", "entry without article")
		}
		if p.Quantity <= 0 {
			return domain.NewConfigurationError("production plan", "quantity for %s must be positive, got %v", p.Article, p.Quantity)
		}
	}
	return nil
}

// referencePeriod is the divisor turning ordered quantities into a daily
// rate. It is 1 in per-period mode.
func referencePeriod(mode domain.ConsumptionMode, dateRange *domain.DateRange) (float64, *domain.Warning) {
	if mode != domain.ModeDailyAverage {
		return 1, nil
	}
	if dateRange == nil || dateRange.TotalDays < 1 {
		return 1, &domain.Warning{
			Kind:    domain.WarningNoDateRange,
			Source:  string(KindOrders),
			Message: "no dated order lines, daily average computed over a 1 day period",
		}
	}
	return float64(dateRange.TotalDays), nil
}

// calculateRow computes the replenishment figures of one consolidated record.
func calculateRow(rec ConsolidatedRecord, days int, period float64, central centralStock) domain.CalculationRow {
	row := domain.CalculationRow{
		Depot:           rec.Key.Depot,
		Article:         rec.Key.Article,
		Packaging:       rec.Key.Packaging,
		Designation:     rec.Designation,
		OrderedQuantity: rec.OrderedQuantity,
		CurrentStock:    rec.FreeStock,
		TransitQuantity: rec.TransitQuantity,
		UnitsPerPallet:  rec.UnitsPerPallet,
	}

	// 1. Average daily consumption (CQM)
	row.AverageDailyConsumption = rec.OrderedQuantity / period

	// 2-3. Demand over the coverage horizon and quantity to send, net of
	// free stock and transit
	row.Demand, row.QuantityToSend = demandAndQuantity(rec.OrderedQuantity, days, period, rec.FreeStock, rec.TransitQuantity)

	// 4. Days of coverage, Infinite without consumption
	row.DaysOfCoverage = coverage(row.CurrentStock, row.AverageDailyConsumption)

	// 5. Days of coverage counting what is already on the road
	row.CoverageWithTransit = coverage(row.CurrentStock+row.TransitQuantity, row.AverageDailyConsumption)

	// 6. Pallets
	row.PalettesNeeded = ceilDiv(row.QuantityToSend, row.UnitsPerPallet)

	// 7. Central warehouse position
	row.CentralStockAvailable, row.HasInventoryData = central.lookup(row.Article)

	return row
}

func coverage(stock, consumption float64) domain.Coverage {
	if consumption <= 0 {
		return domain.InfiniteCoverage()
	}
	return domain.FiniteCoverage(stock / consumption)
}

// filterRecords applies the product, packaging and depot-article pre-filters.
func filterRecords(records []ConsolidatedRecord, req domain.CalculationRequest) []ConsolidatedRecord {
	products := toSet(req.Filters.Products, strings.TrimSpace)
	packaging := toSet(req.Filters.Packaging, normalizePackaging)

	var depotArticles map[string]map[string]struct{}
	if cfg := req.DepotArticles; cfg != nil && cfg.Enabled {
		depotArticles = make(map[string]map[string]struct{}, len(cfg.Mappings))
		for depot, articles := range cfg.Mappings {
			depotArticles[strings.TrimSpace(depot)] = toSet(articles, strings.TrimSpace)
		}
	}

	out := make([]ConsolidatedRecord, 0, len(records))
	for _, rec := range records {
		if products != nil {
			if _, ok := products[rec.Key.Article]; !ok {
				continue
			}
		}
		if packaging != nil {
			if _, ok := packaging[rec.Key.Packaging]; !ok {
				continue
			}
		}
		if depotArticles != nil {
			allowed, configured := depotArticles[rec.Key.Depot]
			if !configured {
				continue
			}
			if _, ok := allowed[rec.Key.Article]; !ok {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

func toSet(values []string, norm func(string) string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[norm(v)] = struct{}{}
	}
	return set
}
