package replenishment

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "", "'", "", "’", "")

var accentFolder = strings.NewReplacer(
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"à", "a", "â", "a", "î", "i", "ï", "i",
	"ô", "o", "ù", "u", "û", "u", "ç", "c",
)

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	name = accentFolder.Replace(name)
	return columnNameSanitizer.Replace(name)
}

// parseNumber reads a spreadsheet cell. A lone comma is taken as the decimal
// separator; when both separators appear the comma groups thousands.
func parseNumber(cell string) (float64, bool) {
	v := strings.TrimSpace(cell)
	if v == "" {
		return 0, true
	}
	v = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(v)
	switch {
	case strings.Contains(v, ",") && strings.Contains(v, "."):
		v = strings.ReplaceAll(v, ",", "")
	case strings.Contains(v, ","):
		v = strings.ReplaceAll(v, ",", ".")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"02/01/2006 15:04:05",
	"02-01-2006",
	"01-02-06",
	"2/1/2006",
}

// parseDate accepts the textual layouts found in exports as well as raw
// Excel serial numbers.
func parseDate(cell string) (time.Time, bool) {
	v := strings.TrimSpace(cell)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return truncateDay(t), true
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return truncateDay(t), true
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// quantityScale is the number of decimals kept on demand and quantities.
const quantityScale = 6

// demandAndQuantity returns ordered*days/period and max(0, demand-stock-transit).
// The product is taken before the division so a demand landing on a pallet
// boundary stays exact.
func demandAndQuantity(ordered float64, days int, period, stock, transit float64) (float64, float64) {
	demand := decimal.NewFromFloat(ordered).
		Mul(decimal.NewFromInt(int64(days))).
		Div(decimal.NewFromFloat(period)).
		Round(quantityScale)
	qty := demand.Sub(decimal.NewFromFloat(stock)).Sub(decimal.NewFromFloat(transit)).Round(quantityScale)
	if qty.IsNegative() {
		qty = decimal.Zero
	}
	d, _ := demand.Float64()
	q, _ := qty.Float64()
	return d, q
}

// ceilDiv returns ceil(qty / per) computed in decimal so 800/30 or 0.1*3
// never lands one pallet off.
func ceilDiv(qty, per float64) int {
	if qty <= 0 || per <= 0 {
		return 0
	}
	q := decimal.NewFromFloat(qty).Div(decimal.NewFromFloat(per))
	return int(q.Ceil().IntPart())
}

func mulQty(palettes int, per float64) float64 {
	f, _ := decimal.NewFromInt(int64(palettes)).Mul(decimal.NewFromFloat(per)).Float64()
	return f
}

// percentage returns part/total*100 rounded to one decimal.
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	p, _ := decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(total)), 1).
		Float64()
	return p
}

func roundFloat(v float64, decimals int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(decimals).Float64()
	return f
}
