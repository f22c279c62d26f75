package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

const (
	MainSheet            = "Table Principale"
	RecommendationsSheet = "Recommandations Dépôts"

	noSuggestion = "Aucune suggestion"
)

var mainHeaders = []any{
	"Dépôt", "Code Article", "Quantité à Livrer", "Palettes", "Status",
	"Désignation", "Emballage", "CQM", "Stock Actuel", "Stock Transit",
	"Jours de Recouvrement", "Priorité", "Stock M210", "Sourcing",
}

var recommendationHeaders = []any{
	"Dépôt", "Palettes Actuelles", "Palettes Cibles", "Article Suggéré",
	"Quantité Suggérée", "Palettes Suggérées", "Stock M210", "Faisabilité", "Raison",
}

// WriteExport builds the export workbook: the selected rows on the main
// sheet and, for every depot among them, its truck completion proposals.
func WriteExport(rows []domain.CalculationRow, depots []domain.DepotSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", MainSheet); err != nil {
		return nil, fmt.Errorf("rename main sheet: %w", err)
	}
	if _, err := f.NewSheet(RecommendationsSheet); err != nil {
		return nil, fmt.Errorf("create recommendations sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeMainSheet(f, rows, headerStyle); err != nil {
		return nil, err
	}
	if err := writeRecommendations(f, rows, depots, headerStyle); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeMainSheet(f *excelize.File, rows []domain.CalculationRow, headerStyle int) error {
	if err := writeHeader(f, MainSheet, mainHeaders, headerStyle); err != nil {
		return err
	}

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{
			r.Depot, r.Article, r.QuantityToSend, r.PalettesNeeded, r.DeliveryStatusText,
			r.Designation, r.Packaging, r.AverageDailyConsumption, r.CurrentStock, r.TransitQuantity,
			coverageCell(r.DaysOfCoverage), string(r.Priority), r.CentralStockAvailable, r.SourcingText,
		}
		if err := f.SetSheetRow(MainSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	return f.SetColWidth(MainSheet, "A", "N", 16)
}

func writeRecommendations(f *excelize.File, rows []domain.CalculationRow, depots []domain.DepotSummary, headerStyle int) error {
	if err := writeHeader(f, RecommendationsSheet, recommendationHeaders, headerStyle); err != nil {
		return err
	}

	selected := make(map[string]struct{})
	for _, r := range rows {
		selected[r.Depot] = struct{}{}
	}

	line := 2
	put := func(values []any) error {
		cell, _ := excelize.CoordinatesToCellName(1, line)
		line++
		return f.SetSheetRow(RecommendationsSheet, cell, &values)
	}

	for _, d := range depots {
		if _, ok := selected[d.Depot]; !ok {
			continue
		}
		if len(d.Suggestions) == 0 {
			if err := put([]any{d.Depot, d.TotalPalettes, d.TargetPalettes, "", "", "", "", noSuggestion, ""}); err != nil {
				return fmt.Errorf("write depot %s: %w", d.Depot, err)
			}
			continue
		}
		for _, s := range d.Suggestions {
			values := []any{
				d.Depot, d.TotalPalettes, d.TargetPalettes, s.Article,
				s.SuggestedQuantity, s.SuggestedPalettes, s.CentralStock, s.FeasibilityText, s.Reason,
			}
			if err := put(values); err != nil {
				return fmt.Errorf("write depot %s: %w", d.Depot, err)
			}
		}
	}

	return f.SetColWidth(RecommendationsSheet, "A", "I", 18)
}

func writeHeader(f *excelize.File, sheet string, headers []any, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func coverageCell(c domain.Coverage) any {
	if c.Infinite {
		return c.String()
	}
	return c.Days
}
