package replenishment

import (
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

type FileKind string

const (
	KindOrders    FileKind = "orders"
	KindInventory FileKind = "inventory"
	KindTransit   FileKind = "transit"
)

type Field string

const (
	FieldArticle        Field = "article"
	FieldDesignation    Field = "designation"
	FieldDepot          Field = "depot"
	FieldOrderedQty     Field = "ordered_quantity"
	FieldFreeStock      Field = "free_stock"
	FieldPackaging      Field = "packaging"
	FieldUnitsPerPallet Field = "units_per_pallet"
	FieldOrderDate      Field = "order_date"
	FieldDivision       Field = "division"
	FieldStock          Field = "stock"
	FieldDestination    Field = "destination"
	FieldSource         Field = "source"
	FieldQuantity       Field = "quantity"
)

// ColumnSpec locates one field by header alias, falling back to a fixed
// zero-based position when no header matches. Position -1 disables the
// fallback.
type ColumnSpec struct {
	Field    Field
	Aliases  []string
	Position int
	Required bool
}

// ColumnMapping is the declared column layout of one file shape.
type ColumnMapping struct {
	Name    string
	Kind    FileKind
	Columns []ColumnSpec
}

// CommandesLayout is the positional orders export (B, D, F, G, I, K).
var CommandesLayout = ColumnMapping{
	Name: "commandes",
	Kind: KindOrders,
	Columns: []ColumnSpec{
		{Field: FieldArticle, Aliases: []string{"Article", "Code Article"}, Position: 1, Required: true},
		{Field: FieldDesignation, Aliases: []string{"Désignation Article", "Désignation"}, Position: 2},
		{Field: FieldDepot, Aliases: []string{"Point d'Expédition", "Nom Division"}, Position: 3, Required: true},
		{Field: FieldOrderedQty, Aliases: []string{"Quantité Commandée", "Qté Commandée"}, Position: 5, Required: true},
		{Field: FieldFreeStock, Aliases: []string{"Stock Utilisation Libre", "Stock Libre"}, Position: 6, Required: true},
		{Field: FieldPackaging, Aliases: []string{"Type Emballage", "Emballage"}, Position: 8, Required: true},
		{Field: FieldUnitsPerPallet, Aliases: []string{"Produits par Palette", "Quantité en Palette"}, Position: 10},
		{Field: FieldOrderDate, Aliases: []string{"Date de Commande"}, Position: -1},
	},
}

// LegacyOrderLayout is the header-driven orders export carrying order dates.
var LegacyOrderLayout = ColumnMapping{
	Name: "legacy",
	Kind: KindOrders,
	Columns: []ColumnSpec{
		{Field: FieldOrderDate, Aliases: []string{"Date de Commande"}, Position: -1},
		{Field: FieldArticle, Aliases: []string{"Article"}, Position: -1, Required: true},
		{Field: FieldDesignation, Aliases: []string{"Désignation Article", "Désignation"}, Position: -1},
		{Field: FieldDepot, Aliases: []string{"Point d'Expédition", "Nom Division"}, Position: -1, Required: true},
		{Field: FieldOrderedQty, Aliases: []string{"Quantité Commandée"}, Position: -1, Required: true},
		{Field: FieldFreeStock, Aliases: []string{"Stock Utilisation Libre"}, Position: -1, Required: true},
		{Field: FieldPackaging, Aliases: []string{"Type Emballage"}, Position: -1, Required: true},
		{Field: FieldUnitsPerPallet, Aliases: []string{"Quantité en Palette", "Produits par Palette"}, Position: -1},
	},
}

// InventoryLayout is the warehouse stock export (A, B, D).
var InventoryLayout = ColumnMapping{
	Name: "inventory",
	Kind: KindInventory,
	Columns: []ColumnSpec{
		{Field: FieldDivision, Aliases: []string{"Division"}, Position: 0, Required: true},
		{Field: FieldArticle, Aliases: []string{"Article"}, Position: 1, Required: true},
		{Field: FieldStock, Aliases: []string{"STOCK A DATE", "Stock"}, Position: 3, Required: true},
	},
}

// TransitLayout is the inter-division transfer export (A, C, G, I).
var TransitLayout = ColumnMapping{
	Name: "transit",
	Kind: KindTransit,
	Columns: []ColumnSpec{
		{Field: FieldArticle, Aliases: []string{"Article"}, Position: 0, Required: true},
		{Field: FieldDestination, Aliases: []string{"Division", "Division destinataire"}, Position: 2, Required: true},
		{Field: FieldSource, Aliases: []string{"Division cédante"}, Position: 6},
		{Field: FieldQuantity, Aliases: []string{"Quantité"}, Position: 8, Required: true},
	},
}

// DetectOrderLayout picks the orders shape from the header row.
func DetectOrderLayout(header []string) ColumnMapping {
	target := normalizeColumnName("Date de Commande")
	for _, h := range header {
		if normalizeColumnName(h) == target {
			return LegacyOrderLayout
		}
	}
	return CommandesLayout
}

// Report describes what normalization kept, dropped and repaired.
type Report struct {
	Source           string           `json:"source"`
	Layout           string           `json:"layout"`
	TotalRows        int              `json:"total_rows"`
	Accepted         int              `json:"accepted"`
	Dropped          int              `json:"dropped"`
	InvalidNumbers   int              `json:"invalid_numbers"`
	InvalidDates     int              `json:"invalid_dates"`
	UnknownPackaging int              `json:"unknown_packaging"`
	Warnings         []domain.Warning `json:"warnings,omitempty"`

	suppressed int
}

const maxDetailedWarnings = 50

func (r *Report) warn(w domain.Warning) {
	if len(r.Warnings) >= maxDetailedWarnings {
		r.suppressed++
		return
	}
	w.Source = r.Source
	r.Warnings = append(r.Warnings, w)
}

func (r *Report) finish() {
	if r.suppressed > 0 {
		r.Warnings = append(r.Warnings, domain.Warning{
			Kind:    domain.WarningTruncated,
			Source:  r.Source,
			Message: fmt.Sprintf("%d further warnings not listed", r.suppressed),
		})
		r.suppressed = 0
	}
}

// Normalizer turns raw sheet rows into canonical records.
type Normalizer struct {
	knownPackaging map[string]struct{}
}

func NewNormalizer(cfg Config) *Normalizer {
	known := make(map[string]struct{}, len(cfg.KnownPackaging))
	for _, p := range cfg.KnownPackaging {
		known[normalizePackaging(p)] = struct{}{}
	}
	return &Normalizer{knownPackaging: known}
}

func normalizePackaging(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}

type resolvedTable struct {
	mapping ColumnMapping
	header  []string
	index   map[Field]int
}

func resolveColumns(header []string, mapping ColumnMapping, width int) (*resolvedTable, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeColumnName(h)
	}

	colIndex := func(names ...string) int {
		for _, name := range names {
			target := normalizeColumnName(name)
			for i, h := range normalized {
				if h == target {
					return i
				}
			}
		}
		return -1
	}

	t := &resolvedTable{mapping: mapping, header: header, index: make(map[Field]int, len(mapping.Columns))}
	var missing []string
	for _, col := range mapping.Columns {
		idx := colIndex(col.Aliases...)
		if idx < 0 && col.Position >= 0 && col.Position < width {
			idx = col.Position
		}
		t.index[col.Field] = idx
		if idx < 0 && col.Required {
			missing = append(missing, string(col.Field))
		}
	}

	if len(missing) > 0 {
		return nil, domain.NewValidationError(string(mapping.Kind), "%s layout: missing columns %s", mapping.Name, strings.Join(missing, ", "))
	}
	return t, nil
}

func (t *resolvedTable) has(f Field) bool {
	idx, ok := t.index[f]
	return ok && idx >= 0
}

func (t *resolvedTable) cell(record []string, f Field) string {
	idx, ok := t.index[f]
	if !ok || idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func (t *resolvedTable) columnName(f Field) string {
	idx := t.index[f]
	if idx >= 0 && idx < len(t.header) && strings.TrimSpace(t.header[idx]) != "" {
		return t.header[idx]
	}
	return string(f)
}

func (t *resolvedTable) number(record []string, f Field, rowNum int, report *Report) float64 {
	raw := t.cell(record, f)
	v, ok := parseNumber(raw)
	if !ok {
		report.InvalidNumbers++
		report.warn(domain.Warning{
			Kind:    domain.WarningInvalidNumber,
			Row:     rowNum,
			Column:  t.columnName(f),
			Message: fmt.Sprintf("cannot read %q as a number, using 0", raw),
		})
		return 0
	}
	if v < 0 {
		report.InvalidNumbers++
		report.warn(domain.Warning{
			Kind:    domain.WarningInvalidNumber,
			Row:     rowNum,
			Column:  t.columnName(f),
			Message: fmt.Sprintf("negative value %v replaced by 0", v),
		})
		return 0
	}
	return v
}

func widest(rows [][]string) int {
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func prepare(rows [][]string, mapping ColumnMapping) (*resolvedTable, *Report, error) {
	if len(rows) == 0 {
		return nil, nil, domain.NewValidationError(string(mapping.Kind), "file has no header row")
	}
	t, err := resolveColumns(rows[0], mapping, widest(rows))
	if err != nil {
		return nil, nil, err
	}
	return t, &Report{Source: string(mapping.Kind), Layout: mapping.Name}, nil
}

func (r *Report) drop(rowNum int, reason string) {
	r.Dropped++
	r.warn(domain.Warning{Kind: domain.WarningDroppedRow, Row: rowNum, Message: reason})
}

// NormalizeOrders maps order rows (header first). A nil mapping selects the
// layout with DetectOrderLayout.
func (n *Normalizer) NormalizeOrders(rows [][]string, mapping *ColumnMapping) ([]domain.OrderRecord, *Report, error) {
	m := CommandesLayout
	if mapping != nil {
		m = *mapping
	} else if len(rows) > 0 {
		m = DetectOrderLayout(rows[0])
	}

	t, report, err := prepare(rows, m)
	if err != nil {
		return nil, nil, err
	}

	records := make([]domain.OrderRecord, 0, len(rows)-1)
	for i, record := range rows[1:] {
		rowNum := i + 2
		if blank(record) {
			continue
		}
		report.TotalRows++

		article := t.cell(record, FieldArticle)
		depot := t.cell(record, FieldDepot)
		if article == "" || depot == "" {
			report.drop(rowNum, "missing article or depot")
			continue
		}

		rec := domain.OrderRecord{
			Article:     article,
			Designation: t.cell(record, FieldDesignation),
			Depot:       depot,
			Packaging:   normalizePackaging(t.cell(record, FieldPackaging)),
			OrderedQty:  t.number(record, FieldOrderedQty, rowNum, report),
			FreeStock:   t.number(record, FieldFreeStock, rowNum, report),
		}
		if t.has(FieldUnitsPerPallet) {
			rec.UnitsPerPallet = t.number(record, FieldUnitsPerPallet, rowNum, report)
		}

		if _, known := n.knownPackaging[rec.Packaging]; !known && len(n.knownPackaging) > 0 {
			report.UnknownPackaging++
			report.warn(domain.Warning{
				Kind:    domain.WarningUnknownPackaging,
				Row:     rowNum,
				Column:  t.columnName(FieldPackaging),
				Message: fmt.Sprintf("unknown packaging %q", rec.Packaging),
			})
		}

		if raw := t.cell(record, FieldOrderDate); raw != "" {
			if d, ok := parseDate(raw); ok {
				rec.OrderDate = &d
			} else {
				report.InvalidDates++
				report.warn(domain.Warning{
					Kind:    domain.WarningInvalidDate,
					Row:     rowNum,
					Column:  t.columnName(FieldOrderDate),
					Message: fmt.Sprintf("cannot read %q as a date", raw),
				})
			}
		}

		records = append(records, rec)
	}

	report.Accepted = len(records)
	report.finish()
	return records, report, nil
}

func (n *Normalizer) NormalizeInventory(rows [][]string, mapping *ColumnMapping) ([]domain.InventoryRecord, *Report, error) {
	m := InventoryLayout
	if mapping != nil {
		m = *mapping
	}

	t, report, err := prepare(rows, m)
	if err != nil {
		return nil, nil, err
	}

	records := make([]domain.InventoryRecord, 0, len(rows)-1)
	for i, record := range rows[1:] {
		rowNum := i + 2
		if blank(record) {
			continue
		}
		report.TotalRows++

		article := t.cell(record, FieldArticle)
		division := t.cell(record, FieldDivision)
		if article == "" || division == "" {
			report.drop(rowNum, "missing article or division")
			continue
		}

		records = append(records, domain.InventoryRecord{
			Article:     article,
			Division:    division,
			StockOnHand: t.number(record, FieldStock, rowNum, report),
		})
	}

	report.Accepted = len(records)
	report.finish()
	return records, report, nil
}

func (n *Normalizer) NormalizeTransit(rows [][]string, mapping *ColumnMapping) ([]domain.TransitRecord, *Report, error) {
	m := TransitLayout
	if mapping != nil {
		m = *mapping
	}

	t, report, err := prepare(rows, m)
	if err != nil {
		return nil, nil, err
	}

	records := make([]domain.TransitRecord, 0, len(rows)-1)
	for i, record := range rows[1:] {
		rowNum := i + 2
		if blank(record) {
			continue
		}
		report.TotalRows++

		article := t.cell(record, FieldArticle)
		destination := t.cell(record, FieldDestination)
		if article == "" || destination == "" {
			report.drop(rowNum, "missing article or destination division")
			continue
		}

		records = append(records, domain.TransitRecord{
			Article:             article,
			DestinationDivision: destination,
			SourceDivision:      t.cell(record, FieldSource),
			Quantity:            t.number(record, FieldQuantity, rowNum, report),
		})
	}

	report.Accepted = len(records)
	report.finish()
	return records, report, nil
}

// DateRangeOf returns the inclusive span of order dates, or nil when no
// order carries a date.
func DateRangeOf(orders []domain.OrderRecord) *domain.DateRange {
	var start, end time.Time
	for _, o := range orders {
		if o.OrderDate == nil {
			continue
		}
		if start.IsZero() || o.OrderDate.Before(start) {
			start = *o.OrderDate
		}
		if end.IsZero() || o.OrderDate.After(end) {
			end = *o.OrderDate
		}
	}
	if start.IsZero() {
		return nil
	}
	return &domain.DateRange{
		Start:     start,
		End:       end,
		TotalDays: int(end.Sub(start).Hours()/24) + 1,
	}
}
