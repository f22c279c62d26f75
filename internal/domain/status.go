package domain

import "strings"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityOK     Priority = "ok"
)

type SourcingTier string

const (
	SourcingLocal    SourcingTier = "local"
	SourcingExternal SourcingTier = "external"
	SourcingUnknown  SourcingTier = "unknown"
)

var sourcingLabels = map[SourcingTier]string{
	SourcingLocal:    "Production Locale",
	SourcingExternal: "Sourcing Externe",
	SourcingUnknown:  "Origine inconnue",
}

// Label returns the text shown next to a sourcing tier.
func (t SourcingTier) Label() string {
	if label, ok := sourcingLabels[t]; ok {
		return label
	}
	return sourcingLabels[SourcingUnknown]
}

// ParseSourcingTier accepts the tier names case-insensitively.
func ParseSourcingTier(s string) (SourcingTier, bool) {
	switch SourcingTier(strings.ToLower(strings.TrimSpace(s))) {
	case SourcingLocal:
		return SourcingLocal, true
	case SourcingExternal:
		return SourcingExternal, true
	case SourcingUnknown:
		return SourcingUnknown, true
	}
	return "", false
}

type InventoryStatus string

const (
	InventorySufficient   InventoryStatus = "sufficient"
	InventoryPartial      InventoryStatus = "partial"
	InventoryInsufficient InventoryStatus = "insufficient"
	InventoryNotFound     InventoryStatus = "not_found"
)

type DeliveryStatus string

const (
	DeliveryOK         DeliveryStatus = "ok"
	DeliveryToDeliver  DeliveryStatus = "a_livrer"
	DeliveryNotCovered DeliveryStatus = "non_couvert"
)

var deliveryLabels = map[DeliveryStatus]string{
	DeliveryOK:         "OK",
	DeliveryToDeliver:  "À livrer",
	DeliveryNotCovered: "Non couvert",
}

func (s DeliveryStatus) Label() string {
	return deliveryLabels[s]
}

type DeliveryEfficiency string

const (
	Efficient   DeliveryEfficiency = "Efficient"
	Inefficient DeliveryEfficiency = "Inefficient"
)

type Feasibility string

const (
	Feasible          Feasibility = "feasible"
	InsufficientStock Feasibility = "insufficient_stock"
)

var feasibilityLabels = map[Feasibility]string{
	Feasible:          "Réalisable",
	InsufficientStock: "Stock insuffisant",
}

func (f Feasibility) Label() string {
	return feasibilityLabels[f]
}

// ConsumptionMode selects how ordered quantities turn into a consumption rate.
type ConsumptionMode string

const (
	// ModePerPeriod uses the ordered quantity itself as the per-day rate (CQM).
	ModePerPeriod ConsumptionMode = "per_period"
	// ModeDailyAverage divides the ordered quantity by the observed date span.
	ModeDailyAverage ConsumptionMode = "daily_average"
)

func (m ConsumptionMode) Valid() bool {
	return m == ModePerPeriod || m == ModeDailyAverage
}
