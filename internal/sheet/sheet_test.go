package sheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

func workbook(t *testing.T, rows [][]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		r := r
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestReadRows_XLSX(t *testing.T) {
	r := workbook(t, [][]any{
		{"Division", "Article", "Dummy_C", "STOCK A DATE"},
		{"M210", "1011", "x", 5000},
		{"M210", "1016", "", 75},
	})

	rows, err := ReadRows(r, "stock_m210.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Division", "Article", "Dummy_C", "STOCK A DATE"}, rows[0])
	assert.Equal(t, []string{"M210", "1011", "x", "5000"}, rows[1])
	assert.Equal(t, "75", rows[2][3])
}

func TestReadRows_CSV(t *testing.T) {
	rows, err := ReadRows(strings.NewReader("\xef\xbb\xbfArticle;Division;Quantité\nA1;M212;12,5\n"), "transit.CSV")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Article", "Division", "Quantité"}, {"A1", "M212", "12,5"}}, rows)

	rows, err = ReadRows(strings.NewReader("a,b\n1,2,3\n"), "x.csv")
	require.NoError(t, err)
	assert.Len(t, rows[1], 3)
}

func TestReadRows_InvalidWorkbook(t *testing.T) {
	_, err := ReadRows(strings.NewReader("not a zip"), "orders.xlsx")
	assert.Error(t, err)
}

func TestWriteExport(t *testing.T) {
	rows := []domain.CalculationRow{
		{
			Depot: "M212", Article: "1011", Packaging: "verre", QuantityToSend: 800, PalettesNeeded: 27,
			DeliveryStatusText: "À livrer", DaysOfCoverage: domain.FiniteCoverage(2), Priority: domain.PriorityHigh,
		},
		{
			Depot: "M213", Article: "1016", Packaging: "pet", DeliveryStatusText: "OK",
			DaysOfCoverage: domain.InfiniteCoverage(), Priority: domain.PriorityOK,
		},
	}
	depots := []domain.DepotSummary{
		{Depot: "M212", TotalPalettes: 27, TargetPalettes: 27, DeliveryEfficiency: domain.Efficient},
		{
			Depot: "M213", TotalPalettes: 0, TargetPalettes: 24, DeliveryEfficiency: domain.Inefficient,
			Suggestions: []domain.Suggestion{{Article: "2011", SuggestedPalettes: 3, SuggestedQuantity: 90, CentralStock: 400, FeasibilityText: "Réalisable", Reason: "ok"}},
		},
		{Depot: "M250", TotalPalettes: 3, TargetPalettes: 24},
	}

	data, err := WriteExport(rows, depots)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{MainSheet, RecommendationsSheet}, f.GetSheetList())

	main, err := f.GetRows(MainSheet)
	require.NoError(t, err)
	require.Len(t, main, 3)
	assert.Equal(t, []string{"Dépôt", "Code Article", "Quantité à Livrer", "Palettes", "Status"}, main[0][:5])
	assert.Equal(t, []string{"M212", "1011", "800", "27", "À livrer"}, main[1][:5])
	assert.Equal(t, "Infinite", main[2][10])

	rec, err := f.GetRows(RecommendationsSheet)
	require.NoError(t, err)
	require.Len(t, rec, 3, "header plus one line per selected depot suggestion")
	assert.Equal(t, "Faisabilité", rec[0][7])
	assert.Equal(t, "Aucune suggestion", rec[1][7])
	assert.Equal(t, []string{"M213", "0", "24", "2011", "90", "3", "400", "Réalisable", "ok"}, rec[2])
}
