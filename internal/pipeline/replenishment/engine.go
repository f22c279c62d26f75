// Package replenishment computes how much each depot must receive from the
// central warehouse to cover a horizon of days, rounds it to pallets, rates
// each depot's truck load and summarizes the outcome.
//
// The engine is synchronous and side-effect free: Calculate and
// ApplyPaletteOverride return new results and never modify their inputs.
package replenishment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
	"github.com/andresuchdata/depot-replenishment/internal/pipeline"
)

type Engine struct {
	cfg        Config
	allowed    *depotSet
	pool       *pipeline.WorkerPool
	thresholds *Classifier
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	allowed, err := parseDepotSet(cfg.AllowedDepots)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:        cfg,
		allowed:    allowed,
		pool:       pipeline.NewWorkerPool("replenishment-aggregate", cfg.WorkerCount),
		thresholds: NewClassifier(cfg, nil),
	}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Calculate runs the whole pipeline over a dataset. sourcing may be nil, in
// which case every article gets the configured default tier.
func (e *Engine) Calculate(ctx context.Context, ds *domain.Dataset, req domain.CalculationRequest, sourcing SourcingLookup) (*domain.CalculationResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if ds == nil || len(ds.Orders) == 0 {
		return nil, domain.NewValidationError("orders", "no order data uploaded")
	}

	result := &domain.CalculationResult{
		Request:        req,
		HasTransitData: ds.HasTransit,
	}

	agg, err := e.Aggregate(ctx, ds.Orders, ds.Transit)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, agg.Warnings...)

	period, warning := referencePeriod(req.Mode, ds.DateRange)
	if warning != nil {
		result.Warnings = append(result.Warnings, *warning)
	}
	result.ReferencePeriodDays = period

	central := buildCentralStock(e.cfg.CentralWarehouse, ds.Inventory, ds.HasInventory, req.ProductionPlan)
	result.CentralStock = central.available
	result.HasInventoryData = central.loaded
	if !central.loaded {
		result.Warnings = append(result.Warnings, domain.Warning{
			Kind:    domain.WarningNoInventory,
			Source:  string(KindInventory),
			Message: fmt.Sprintf("no %s inventory loaded, central stock checks skipped", e.cfg.CentralWarehouse),
		})
	}

	records := filterRecords(agg.Records, req)

	classifier := NewClassifier(e.cfg, sourcing)
	rows := make([]domain.CalculationRow, 0, len(records))
	for _, rec := range records {
		row := calculateRow(rec, req.Days, period, central)
		classifier.classify(&row, central.loaded)
		rows = append(rows, row)
	}

	result.Rows = rows
	result.Summary = e.finalize(rows, central.available)

	log.Debug().
		Int("order_lines", len(ds.Orders)).
		Int("consolidated", len(agg.Records)).
		Int("rows", len(rows)).
		Int("days", req.Days).
		Str("mode", string(req.Mode)).
		Msg("replenishment calculated")

	return result, nil
}

// finalize stamps each row with its depot's truck efficiency and rebuilds the
// summary.
func (e *Engine) finalize(rows []domain.CalculationRow, central map[string]float64) domain.Summary {
	efficient := make(map[string]bool)
	for _, d := range e.depotSummaries(rows) {
		efficient[d.Depot] = d.DeliveryEfficiency == domain.Efficient
	}
	for i := range rows {
		rows[i].DeliveryEfficient = efficient[rows[i].Depot]
	}
	return e.BuildSummary(rows, central)
}
