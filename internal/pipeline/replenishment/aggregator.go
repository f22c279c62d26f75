package replenishment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
	"github.com/andresuchdata/depot-replenishment/internal/pipeline"
)

// ConsolidatedRecord is the sum of every order line sharing a row key.
type ConsolidatedRecord struct {
	Key             domain.RowKey
	Designation     string
	OrderedQuantity float64
	FreeStock       float64
	TransitQuantity float64
	UnitsPerPallet  float64
	LineCount       int
}

// Aggregation is the Aggregator output, sorted by depot, article, packaging.
type Aggregation struct {
	Records        []ConsolidatedRecord
	ExcludedDepots map[string]int
	Warnings       []domain.Warning
}

type transitKey struct {
	article     string
	destination string
}

// Aggregate consolidates order lines per (depot, article, packaging). Large
// inputs are grouped on the worker pool, one partition per depot.
func (e *Engine) Aggregate(ctx context.Context, orders []domain.OrderRecord, transit []domain.TransitRecord) (*Aggregation, error) {
	unitsPerPallet := make(map[string]float64)
	for _, o := range orders {
		article := strings.TrimSpace(o.Article)
		if _, seen := unitsPerPallet[article]; !seen && o.UnitsPerPallet > 0 {
			unitsPerPallet[article] = o.UnitsPerPallet
		}
	}

	transitTotals := make(map[transitKey]float64)
	for _, t := range transit {
		k := transitKey{article: strings.TrimSpace(t.Article), destination: strings.TrimSpace(t.DestinationDivision)}
		transitTotals[k] += t.Quantity
	}

	agg := &Aggregation{ExcludedDepots: make(map[string]int)}
	partitions := make(map[string][]domain.OrderRecord)
	for _, o := range orders {
		depot := strings.TrimSpace(o.Depot)
		if depot == e.cfg.CentralWarehouse || !e.allowed.allows(depot) {
			agg.ExcludedDepots[depot]++
			continue
		}
		partitions[depot] = append(partitions[depot], o)
	}

	excluded := make([]string, 0, len(agg.ExcludedDepots))
	for depot := range agg.ExcludedDepots {
		excluded = append(excluded, depot)
	}
	sort.Strings(excluded)
	for _, depot := range excluded {
		agg.Warnings = append(agg.Warnings, domain.Warning{
			Kind:    domain.WarningExcludedDepot,
			Source:  string(KindOrders),
			Message: fmt.Sprintf("depot %s is not served, %d lines ignored", depot, agg.ExcludedDepots[depot]),
		})
	}

	group := func(_ context.Context, depot string, lines []domain.OrderRecord) ([]ConsolidatedRecord, error) {
		return e.consolidateDepot(depot, lines, unitsPerPallet, transitTotals), nil
	}

	var grouped [][]ConsolidatedRecord
	if e.pool.WorkerCount() > 1 && len(orders) >= e.cfg.ParallelThreshold && len(partitions) > 1 {
		out, err := pipeline.RunPartitioned(ctx, e.pool, partitions, group)
		if err != nil {
			return nil, fmt.Errorf("aggregate orders: %w", err)
		}
		grouped = out
	} else {
		depots := make([]string, 0, len(partitions))
		for depot := range partitions {
			depots = append(depots, depot)
		}
		sort.Strings(depots)
		for _, depot := range depots {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out, _ := group(ctx, depot, partitions[depot])
			grouped = append(grouped, out)
		}
	}

	for _, records := range grouped {
		agg.Records = append(agg.Records, records...)
	}
	return agg, nil
}

func (e *Engine) consolidateDepot(depot string, lines []domain.OrderRecord, unitsPerPallet map[string]float64, transit map[transitKey]float64) []ConsolidatedRecord {
	index := make(map[domain.RowKey]int)
	var records []ConsolidatedRecord

	for _, o := range lines {
		key := domain.RowKey{
			Depot:     depot,
			Article:   strings.TrimSpace(o.Article),
			Packaging: normalizePackaging(o.Packaging),
		}

		i, ok := index[key]
		if !ok {
			upp := unitsPerPallet[key.Article]
			if upp <= 0 {
				upp = e.cfg.DefaultUnitsPerPallet
			}
			records = append(records, ConsolidatedRecord{
				Key:             key,
				UnitsPerPallet:  upp,
				TransitQuantity: transit[transitKey{article: key.Article, destination: depot}],
			})
			i = len(records) - 1
			index[key] = i
		}

		rec := &records[i]
		rec.OrderedQuantity += o.OrderedQty
		rec.FreeStock += o.FreeStock
		rec.LineCount++
		if rec.Designation == "" {
			rec.Designation = strings.TrimSpace(o.Designation)
		}
	}

	sort.Slice(records, func(a, b int) bool {
		ka, kb := records[a].Key, records[b].Key
		if ka.Article != kb.Article {
			return ka.Article < kb.Article
		}
		return ka.Packaging < kb.Packaging
	})
	return records
}
