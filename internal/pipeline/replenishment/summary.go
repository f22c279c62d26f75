package replenishment

import (
	"math"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

// BuildSummary derives every dashboard figure from rows. It keeps no state
// and is called again after each palette override.
func (e *Engine) BuildSummary(rows []domain.CalculationRow, central map[string]float64) domain.Summary {
	summary := domain.Summary{TotalRows: len(rows)}

	products := make(map[string]struct{})
	for _, row := range rows {
		products[row.Article] = struct{}{}

		summary.TotalQuantityToSend += row.QuantityToSend
		summary.TotalPalettes += row.PalettesNeeded

		switch row.Priority {
		case domain.PriorityHigh:
			summary.Priority.High++
		case domain.PriorityMedium:
			summary.Priority.Medium++
		case domain.PriorityLow:
			summary.Priority.Low++
		default:
			summary.Priority.OK++
		}

		switch row.SourcingTier {
		case domain.SourcingLocal:
			summary.Sourcing.LocalItems++
		case domain.SourcingExternal:
			summary.Sourcing.ExternalItems++
			if row.QuantityToSend > 0 {
				summary.ExternalSourcingNeeded++
			}
		default:
			summary.Sourcing.UnknownItems++
		}

		switch row.InventoryStatus {
		case domain.InventorySufficient:
			summary.Inventory.Sufficient++
		case domain.InventoryPartial:
			summary.Inventory.Partial++
		case domain.InventoryInsufficient:
			summary.Inventory.Insufficient++
		default:
			summary.Inventory.NotFound++
		}
		if row.HasInventoryData {
			summary.Inventory.ShortageQuantity += math.Max(0, row.QuantityToSend-row.CentralStockAvailable)
		}

		switch row.DeliveryStatus {
		case domain.DeliveryOK:
			summary.Delivery.OK++
		case domain.DeliveryNotCovered:
			summary.Delivery.NotCovered++
		default:
			summary.Delivery.ToDeliver++
		}
	}

	summary.TotalProducts = len(products)
	summary.TotalQuantityToSend = roundFloat(summary.TotalQuantityToSend, 2)
	summary.Inventory.ShortageQuantity = roundFloat(summary.Inventory.ShortageQuantity, 2)

	n := len(rows)
	summary.Sourcing.LocalPercentage = percentage(summary.Sourcing.LocalItems, n)
	summary.Sourcing.ExternalPercentage = percentage(summary.Sourcing.ExternalItems, n)
	summary.Sourcing.UnknownPercentage = percentage(summary.Sourcing.UnknownItems, n)

	summary.Depots = e.depotSummaries(rows)
	summary.TotalDepots = len(summary.Depots)
	for i := range summary.Depots {
		d := &summary.Depots[i]
		summary.TotalTrucks += d.TrucksNeeded
		if d.DeliveryEfficiency == domain.Efficient {
			summary.EfficientDepots++
			continue
		}
		summary.InefficientDepots++
		if needsCompletion(*d) {
			d.Suggestions = e.suggestions(rows, central, d.Depot, d.PalettesToAdd)
		}
	}

	return summary
}
