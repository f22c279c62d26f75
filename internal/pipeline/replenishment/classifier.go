package replenishment

import "github.com/andresuchdata/depot-replenishment/internal/domain"

// SourcingLookup resolves the origin of an article.
type SourcingLookup interface {
	Lookup(article string) (domain.SourcingTier, bool)
}

// StaticSourcing is a fixed article to tier table.
type StaticSourcing map[string]domain.SourcingTier

func (s StaticSourcing) Lookup(article string) (domain.SourcingTier, bool) {
	tier, ok := s[article]
	return tier, ok
}

// LocalArticles builds a table marking every listed article as local.
func LocalArticles(articles []string) StaticSourcing {
	table := make(StaticSourcing, len(articles))
	for _, a := range articles {
		table[a] = domain.SourcingLocal
	}
	return table
}

// Classifier owns the priority thresholds and the sourcing default.
type Classifier struct {
	highDays    float64
	mediumDays  float64
	defaultTier domain.SourcingTier
	sourcing    SourcingLookup
}

func NewClassifier(cfg Config, sourcing SourcingLookup) *Classifier {
	return &Classifier{
		highDays:    cfg.HighPriorityDays,
		mediumDays:  cfg.MediumPriorityDays,
		defaultTier: cfg.DefaultSourcing,
		sourcing:    sourcing,
	}
}

// Priority maps days of coverage onto a tier. Zero consumption is always ok.
func (c *Classifier) Priority(cover domain.Coverage) domain.Priority {
	switch {
	case cover.Infinite:
		return domain.PriorityOK
	case cover.Days < c.highDays:
		return domain.PriorityHigh
	case cover.Days < c.mediumDays:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// Sourcing returns the tier of an article, falling back to the configured default.
func (c *Classifier) Sourcing(article string) domain.SourcingTier {
	if c.sourcing != nil {
		if tier, ok := c.sourcing.Lookup(article); ok {
			return tier
		}
	}
	return c.defaultTier
}

// InventoryStatus compares the central stock with the quantity to send.
// found reports whether the article exists in central inventory or in the
// production plan at all.
func InventoryStatus(quantityToSend, available float64, found bool) domain.InventoryStatus {
	switch {
	case !found:
		return domain.InventoryNotFound
	case quantityToSend <= 0 || available >= quantityToSend:
		return domain.InventorySufficient
	case available > 0:
		return domain.InventoryPartial
	default:
		return domain.InventoryInsufficient
	}
}

// DeliveryStatus derives the shipping verdict. Without an inventory file a
// row that needs stock is simply to be delivered.
func DeliveryStatus(quantityToSend float64, inventory domain.InventoryStatus, inventoryLoaded bool) domain.DeliveryStatus {
	switch {
	case quantityToSend <= 0:
		return domain.DeliveryOK
	case inventoryLoaded && (inventory == domain.InventoryPartial || inventory == domain.InventoryInsufficient || inventory == domain.InventoryNotFound):
		return domain.DeliveryNotCovered
	default:
		return domain.DeliveryToDeliver
	}
}

// classify fills the status and sourcing fields of a row in place.
func (c *Classifier) classify(row *domain.CalculationRow, inventoryLoaded bool) {
	row.Priority = c.Priority(row.DaysOfCoverage)

	row.InventoryStatus = InventoryStatus(row.QuantityToSend, row.CentralStockAvailable, row.HasInventoryData)
	row.DeliveryStatus = DeliveryStatus(row.QuantityToSend, row.InventoryStatus, inventoryLoaded)
	row.DeliveryStatusText = row.DeliveryStatus.Label()

	row.SourcingTier = c.Sourcing(row.Article)
	row.SourcingText = row.SourcingTier.Label()
	row.IsLocallyMade = row.SourcingTier == domain.SourcingLocal
}
