package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// OrderRecord is one normalized line of the orders workbook.
type OrderRecord struct {
	Article        string     `json:"article"`
	Designation    string     `json:"designation,omitempty"`
	Depot          string     `json:"depot"`
	Packaging      string     `json:"packaging"`
	OrderedQty     float64    `json:"ordered_quantity"`
	FreeStock      float64    `json:"free_stock"`
	UnitsPerPallet float64    `json:"units_per_pallet,omitempty"`
	OrderDate      *time.Time `json:"order_date,omitempty"`
}

type InventoryRecord struct {
	Article     string  `json:"article"`
	Division    string  `json:"division"`
	StockOnHand float64 `json:"stock_on_hand"`
}

type TransitRecord struct {
	Article             string  `json:"article"`
	DestinationDivision string  `json:"destination_division"`
	SourceDivision      string  `json:"source_division,omitempty"`
	Quantity            float64 `json:"quantity"`
}

type ProductionPlanEntry struct {
	Article  string  `json:"article"`
	Quantity float64 `json:"quantity"`
}

// DateRange is the observed span of order dates, both ends inclusive.
type DateRange struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	TotalDays int       `json:"total_days"`
}

// Dataset is the immutable handle of everything uploaded into one session.
// Uploads build a new Dataset through the With* helpers; nothing mutates a
// stored handle.
type Dataset struct {
	SessionID    string            `json:"session_id"`
	Orders       []OrderRecord     `json:"orders"`
	Inventory    []InventoryRecord `json:"inventory,omitempty"`
	Transit      []TransitRecord   `json:"transit,omitempty"`
	HasInventory bool              `json:"has_inventory"`
	HasTransit   bool              `json:"has_transit"`
	DateRange    *DateRange        `json:"date_range,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (d *Dataset) clone(now time.Time) *Dataset {
	next := *d
	next.UpdatedAt = now
	return &next
}

func (d *Dataset) WithOrders(orders []OrderRecord, dateRange *DateRange, now time.Time) *Dataset {
	next := d.clone(now)
	next.Orders = orders
	next.DateRange = dateRange
	return next
}

func (d *Dataset) WithInventory(inventory []InventoryRecord, now time.Time) *Dataset {
	next := d.clone(now)
	next.Inventory = inventory
	next.HasInventory = true
	return next
}

func (d *Dataset) WithTransit(transit []TransitRecord, now time.Time) *Dataset {
	next := d.clone(now)
	next.Transit = transit
	next.HasTransit = true
	return next
}

// RowKey identifies one calculation row.
type RowKey struct {
	Depot     string `json:"depot"`
	Article   string `json:"article"`
	Packaging string `json:"packaging"`
}

func (k RowKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.Depot, k.Article, k.Packaging)
}

// Coverage is a number of days, or the Infinite sentinel when consumption is zero.
type Coverage struct {
	Days     float64
	Infinite bool
}

const infiniteCoverage = "Infinite"

func FiniteCoverage(days float64) Coverage { return Coverage{Days: days} }

func InfiniteCoverage() Coverage { return Coverage{Infinite: true} }

func (c Coverage) String() string {
	if c.Infinite {
		return infiniteCoverage
	}
	return strconv.FormatFloat(c.Days, 'f', 1, 64)
}

func (c Coverage) MarshalJSON() ([]byte, error) {
	if c.Infinite {
		return json.Marshal(infiniteCoverage)
	}
	return json.Marshal(c.Days)
}

func (c *Coverage) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != infiniteCoverage {
			return fmt.Errorf("invalid coverage %q", s)
		}
		*c = InfiniteCoverage()
		return nil
	}

	var days float64
	if err := json.Unmarshal(data, &days); err != nil {
		return fmt.Errorf("invalid coverage: %w", err)
	}
	*c = FiniteCoverage(days)
	return nil
}

// CalculationRow is the replenishment decision for one depot x article x packaging.
type CalculationRow struct {
	Depot                   string          `json:"depot"`
	Article                 string          `json:"article"`
	Packaging               string          `json:"packaging"`
	Designation             string          `json:"designation,omitempty"`
	OrderedQuantity         float64         `json:"ordered_quantity"`
	AverageDailyConsumption float64         `json:"average_daily_consumption"`
	CurrentStock            float64         `json:"current_stock"`
	TransitQuantity         float64         `json:"transit_quantity"`
	Demand                  float64         `json:"demand"`
	DaysOfCoverage          Coverage        `json:"days_of_coverage"`
	CoverageWithTransit     Coverage        `json:"coverage_with_transit_days"`
	QuantityToSend          float64         `json:"quantity_to_send"`
	UnitsPerPallet          float64         `json:"units_per_pallet"`
	PalettesNeeded          int             `json:"palettes_needed"`
	CentralStockAvailable   float64         `json:"central_stock_available"`
	HasInventoryData        bool            `json:"has_inventory_data"`
	InventoryStatus         InventoryStatus `json:"inventory_status"`
	DeliveryStatus          DeliveryStatus  `json:"delivery_status"`
	DeliveryStatusText      string          `json:"delivery_status_text"`
	IsLocallyMade           bool            `json:"is_locally_made"`
	SourcingTier            SourcingTier    `json:"sourcing_tier"`
	SourcingText            string          `json:"sourcing_text"`
	Priority                Priority        `json:"priority"`
	Overridden              bool            `json:"overridden"`
	DeliveryEfficient       bool            `json:"delivery_efficient"`
}

func (r CalculationRow) Key() RowKey {
	return RowKey{Depot: r.Depot, Article: r.Article, Packaging: r.Packaging}
}

// Suggestion proposes extra pallets of one article to fill a depot's truck.
type Suggestion struct {
	Article           string      `json:"article"`
	Designation       string      `json:"designation,omitempty"`
	Packaging         string      `json:"packaging"`
	InDepotOrder      bool        `json:"in_depot_order"`
	CentralStock      float64     `json:"stock_m210"`
	UnitsPerPallet    float64     `json:"units_per_pallet"`
	SuggestedPalettes int         `json:"suggested_palettes"`
	SuggestedQuantity float64     `json:"suggested_quantity"`
	CanFulfill        bool        `json:"can_fulfill"`
	Feasibility       Feasibility `json:"feasibility"`
	FeasibilityText   string      `json:"feasibility_text"`
	Reason            string      `json:"reason"`
}

// DepotCompletion is the answer to "what would fill this depot's truck".
type DepotCompletion struct {
	Depot           string             `json:"depot_name"`
	CurrentPalettes int                `json:"current_palettes"`
	TargetPalettes  int                `json:"target_palettes"`
	PalettesToAdd   int                `json:"palettes_to_add"`
	Efficiency      DeliveryEfficiency `json:"delivery_efficiency"`
	Suggestions     []Suggestion       `json:"suggestions"`
}

type DepotSummary struct {
	Depot              string             `json:"depot"`
	TotalPalettes      int                `json:"total_palettes"`
	TotalQuantity      float64            `json:"total_quantity"`
	RowCount           int                `json:"row_count"`
	TrucksNeeded       int                `json:"trucks_needed"`
	DeliveryEfficiency DeliveryEfficiency `json:"delivery_efficiency"`
	PalettesToAdd      int                `json:"palettes_to_add"`
	TargetPalettes     int                `json:"target_palettes"`
	Suggestions        []Suggestion       `json:"suggestions,omitempty"`
}

type PriorityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	OK     int `json:"ok"`
}

type SourcingSummary struct {
	LocalItems         int     `json:"local_items"`
	ExternalItems      int     `json:"external_items"`
	UnknownItems       int     `json:"unknown_items"`
	LocalPercentage    float64 `json:"local_percentage"`
	ExternalPercentage float64 `json:"external_percentage"`
	UnknownPercentage  float64 `json:"unknown_percentage"`
}

type InventorySummary struct {
	Sufficient       int     `json:"sufficient"`
	Partial          int     `json:"partial"`
	Insufficient     int     `json:"insufficient"`
	NotFound         int     `json:"not_found"`
	ShortageQuantity float64 `json:"shortage_quantity"`
}

type DeliveryCounts struct {
	OK         int `json:"ok"`
	ToDeliver  int `json:"a_livrer"`
	NotCovered int `json:"non_couvert"`
}

// Summary is derived from the row set alone and rebuilt after every change.
type Summary struct {
	TotalRows              int              `json:"total_rows"`
	TotalDepots            int              `json:"total_depots"`
	TotalProducts          int              `json:"total_products"`
	TotalQuantityToSend    float64          `json:"total_quantity_to_send"`
	TotalPalettes          int              `json:"total_palettes"`
	TotalTrucks            int              `json:"total_trucks"`
	EfficientDepots        int              `json:"efficient_depots"`
	InefficientDepots      int              `json:"inefficient_depots"`
	ExternalSourcingNeeded int              `json:"external_sourcing_needed"`
	Priority               PriorityCounts   `json:"priority"`
	Sourcing               SourcingSummary  `json:"sourcing"`
	Inventory              InventorySummary `json:"inventory"`
	Delivery               DeliveryCounts   `json:"delivery"`
	Depots                 []DepotSummary   `json:"depots"`
}

// Filters narrow the consolidated records before any arithmetic. A nil slice
// means "no filter"; a non-nil empty packaging slice is rejected.
type Filters struct {
	Products  []string `json:"products,omitempty"`
	Packaging []string `json:"packaging,omitempty"`
}

// DepotArticleConfig restricts each depot to a configured article list.
type DepotArticleConfig struct {
	Enabled  bool                `json:"enabled"`
	Mappings map[string][]string `json:"depot_articles"`
}

type CalculationRequest struct {
	Days           int                   `json:"days"`
	Mode           ConsumptionMode       `json:"mode"`
	Filters        Filters               `json:"filters"`
	ProductionPlan []ProductionPlanEntry `json:"production_plan,omitempty"`
	DepotArticles  *DepotArticleConfig   `json:"depot_articles,omitempty"`
}

// CalculationResult is one calculation, possibly with palette overrides applied.
type CalculationResult struct {
	Rows                []CalculationRow   `json:"rows"`
	Summary             Summary            `json:"summary"`
	Warnings            []Warning          `json:"warnings,omitempty"`
	Request             CalculationRequest `json:"request"`
	ReferencePeriodDays float64            `json:"reference_period_days"`
	CentralStock        map[string]float64 `json:"central_stock,omitempty"`
	HasInventoryData    bool               `json:"has_inventory_data"`
	HasTransitData      bool               `json:"has_transit_data"`
	CalculatedAt        time.Time          `json:"calculated_at"`
}

// Row returns the row with the given key.
func (r *CalculationResult) Row(key RowKey) (CalculationRow, bool) {
	for _, row := range r.Rows {
		if row.Key() == key {
			return row, true
		}
	}
	return CalculationRow{}, false
}

// Depot returns the summary of one depot.
func (r *CalculationResult) Depot(depot string) (DepotSummary, bool) {
	for _, d := range r.Summary.Depots {
		if d.Depot == depot {
			return d, true
		}
	}
	return DepotSummary{}, false
}
