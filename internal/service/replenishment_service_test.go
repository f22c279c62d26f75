package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/depot-replenishment/internal/cache"
	"github.com/andresuchdata/depot-replenishment/internal/domain"
	"github.com/andresuchdata/depot-replenishment/internal/pipeline/replenishment"
	"github.com/andresuchdata/depot-replenishment/internal/repository"
	"github.com/andresuchdata/depot-replenishment/internal/storage"
)

const ordersHeader = "Article;Désignation Article;Point d'Expédition;Quantité Commandée;Stock Utilisation Libre;Type Emballage;Produits par Palette\n"

func ordersCSV(lines ...string) *strings.Reader {
	return strings.NewReader(ordersHeader + strings.Join(lines, "\n") + "\n")
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeStorage) ListObjects(context.Context, string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func (f *fakeStorage) GetObject(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key], nil
}

func (f *fakeStorage) UploadObject(_ context.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	return nil
}

type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	return fmt.Sprintf("%d chars", len(prompt)), nil
}

var fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*ReplenishmentService, repository.ReferenceRepository) {
	t.Helper()
	engine, err := replenishment.NewEngine(replenishment.DefaultConfig())
	require.NoError(t, err)
	refs := repository.NewMemoryReferenceRepository(nil)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewReplenishmentService(engine, cache.NewMemorySessionStore(), refs, opts...), refs
}

func perPeriod(days int) domain.CalculationRequest {
	return domain.CalculationRequest{Days: days, Mode: domain.ModePerPeriod}
}

func TestReplenishmentService_Workflow(t *testing.T) {
	ctx := context.Background()
	store := &fakeStorage{}
	svc, _ := newTestService(t, WithStorage(store), WithAssistant(echoCompleter{}))

	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	up, err := svc.UploadOrders(ctx, id, "commandes.csv", ordersCSV(
		"A1;Eau 1L;M212;100;200;Verre;30",
		"A2;Soda;M213;10;0;pet;",
		";missing;M212;1;1;pet;30",
	))
	require.NoError(t, err)
	assert.Equal(t, 2, up.Records)
	assert.Equal(t, 1, up.Report.Dropped)
	assert.Equal(t, "commandes", up.Report.Layout)
	assert.Equal(t, []string{"M212", "M213"}, up.Depots)

	opts, err := svc.Options(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"M212", "M213"}, opts.Depots)
	assert.Equal(t, []string{"pet", "verre"}, opts.Packaging)
	assert.Equal(t, ArticleOption{Code: "A1", Designation: "Eau 1L"}, opts.Articles[0])

	res, err := svc.Calculate(ctx, id, perPeriod(10))
	require.NoError(t, err)
	assert.Equal(t, fixedNow, res.CalculatedAt)

	row, ok := res.Row(domain.RowKey{Depot: "M212", Article: "A1", Packaging: "verre"})
	require.True(t, ok)
	assert.Equal(t, 800.0, row.QuantityToSend)
	assert.Equal(t, 27, row.PalettesNeeded)

	sel := replenishment.OverrideSelector{Depot: "M212", Article: "A1"}
	overridden, err := svc.ApplyPaletteOverride(ctx, id, sel, 24)
	require.NoError(t, err)
	assert.Equal(t, 720.0, overridden.Rows[0].QuantityToSend)

	palettes, err := svc.Palettes(ctx, id, sel)
	require.NoError(t, err)
	assert.Equal(t, 24, palettes)

	completion, err := svc.DepotSuggestions(ctx, id, "M213")
	require.NoError(t, err)
	assert.Equal(t, domain.Inefficient, completion.Efficiency)
	assert.Equal(t, 24, completion.TargetPalettes)

	export, err := svc.Export(ctx, id, []domain.RowKey{{Depot: "M212", Article: "A1", Packaging: "verre"}})
	require.NoError(t, err)
	assert.Equal(t, 1, export.Rows)
	assert.Equal(t, "replenishment_20260302_100000.xlsx", export.Filename)
	assert.Equal(t, storage.ExportKey(id, fixedNow), export.ObjectKey)
	assert.Equal(t, export.Data, store.objects[export.ObjectKey])

	f, err := excelize.OpenReader(bytes.NewReader(export.Data))
	require.NoError(t, err)
	mainRows, err := f.GetRows("Table Principale")
	require.NoError(t, err)
	assert.Len(t, mainRows, 2)
	assert.Equal(t, "720", mainRows[1][2])
	require.NoError(t, f.Close())

	answer, err := svc.Ask(ctx, id, "which depot first?")
	require.NoError(t, err)
	assert.Equal(t, id, answer.SessionID)
	assert.NotEmpty(t, answer.Response)
}

func TestReplenishmentService_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Calculate(ctx, "nope", perPeriod(10))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = svc.UploadOrders(ctx, "nope", "o.csv", ordersCSV("A1;x;M212;1;1;pet;30"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	_, err = svc.Calculate(ctx, id, perPeriod(10))
	assert.True(t, domain.IsValidation(err), "no orders yet: %v", err)

	_, err = svc.Palettes(ctx, id, replenishment.OverrideSelector{Depot: "M212", Article: "A1"})
	assert.True(t, domain.IsValidation(err), "no calculation yet: %v", err)

	_, err = svc.UploadOrders(ctx, id, "o.xlsx", strings.NewReader("not a workbook"))
	assert.True(t, domain.IsValidation(err))

	_, err = svc.UploadOrders(ctx, id, "o.csv", ordersCSV("A1;x;M212;1;1;pet;30"))
	require.NoError(t, err)

	_, err = svc.Calculate(ctx, id, perPeriod(0))
	assert.True(t, domain.IsConfiguration(err))

	_, err = svc.Calculate(ctx, id, perPeriod(5))
	require.NoError(t, err)

	_, err = svc.Export(ctx, id, []domain.RowKey{{Depot: "M299", Article: "A1", Packaging: "pet"}})
	assert.True(t, domain.IsValidation(err))

	_, err = svc.ApplyPaletteOverride(ctx, id, replenishment.OverrideSelector{Depot: "M212", Article: "A1"}, -1)
	assert.True(t, domain.IsConfiguration(err))

	_, err = svc.Ask(ctx, id, "anything")
	assert.Error(t, err, "assistant is disabled by default")
}

func TestReplenishmentService_UploadDropsStaleResult(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	_, err = svc.UploadOrders(ctx, id, "o.csv", ordersCSV("A1;x;M212;10;0;pet;30"))
	require.NoError(t, err)
	_, err = svc.Calculate(ctx, id, perPeriod(3))
	require.NoError(t, err)

	_, err = svc.UploadTransit(ctx, id, "transit.csv", strings.NewReader("Article;x;Division;Quantité\nA1;;M212;30\n"))
	require.NoError(t, err)

	_, err = svc.Result(ctx, id)
	assert.True(t, domain.IsValidation(err))

	res, err := svc.Calculate(ctx, id, perPeriod(3))
	require.NoError(t, err)
	assert.Equal(t, 30.0, res.Rows[0].TransitQuantity)
	assert.True(t, res.HasTransitData)
}

func TestReplenishmentService_DeleteSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	other, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	_, err = svc.UploadOrders(ctx, id, "o.csv", ordersCSV("A1;x;M212;10;0;pet;30"))
	require.NoError(t, err)
	_, err = svc.Calculate(ctx, id, perPeriod(3))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSession(ctx, id))

	_, err = svc.Result(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = svc.Options(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, svc.DeleteSession(ctx, id), domain.ErrSessionNotFound)

	_, err = svc.Options(ctx, other)
	assert.NoError(t, err, "other sessions are kept")
}

func TestReplenishmentService_ReferenceData(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, WithLocalArticles([]string{"A2"}))

	id, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	_, err = svc.UploadOrders(ctx, id, "o.csv", ordersCSV(
		"A1;x;M212;10;0;pet;30",
		"A2;y;M212;10;0;pet;30",
		"A1;x;M213;10;0;pet;30",
	))
	require.NoError(t, err)

	res, err := svc.Calculate(ctx, id, perPeriod(3))
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	a2, _ := res.Row(domain.RowKey{Depot: "M212", Article: "A2", Packaging: "pet"})
	assert.Equal(t, domain.SourcingLocal, a2.SourcingTier, "local article fallback applies while the table is empty")

	_, err = svc.SaveSourcingTable(ctx, map[string]string{"A1": "Local"})
	require.NoError(t, err)
	_, err = svc.SaveSourcingTable(ctx, map[string]string{"A1": "martian"})
	assert.True(t, domain.IsValidation(err))

	saved, err := svc.SaveDepotArticleConfig(ctx, domain.DepotArticleConfig{
		Enabled:  true,
		Mappings: map[string][]string{" M212 ": {"A1", "A1", " "}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, saved.Mappings["M212"])

	res, err = svc.Calculate(ctx, id, perPeriod(3))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, domain.RowKey{Depot: "M212", Article: "A1", Packaging: "pet"}, res.Rows[0].Key())
	assert.Equal(t, domain.SourcingLocal, res.Rows[0].SourcingTier)

	// an explicit request configuration wins over the stored one
	res, err = svc.Calculate(ctx, id, domain.CalculationRequest{
		Days: 3, Mode: domain.ModePerPeriod,
		DepotArticles: &domain.DepotArticleConfig{Enabled: false},
	})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
	a2, _ = res.Row(domain.RowKey{Depot: "M212", Article: "A2", Packaging: "pet"})
	assert.Equal(t, domain.SourcingExternal, a2.SourcingTier)
}

func TestReplenishmentService_ConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	ids := make([]string, 8)
	for i := range ids {
		id, err := svc.CreateSession(ctx)
		require.NoError(t, err)
		_, err = svc.UploadOrders(ctx, id, "o.csv", ordersCSV("A1;x;M212;100;0;pet;10"))
		require.NoError(t, err)
		_, err = svc.Calculate(ctx, id, perPeriod(10))
		require.NoError(t, err)
		ids[i] = id
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8*20)
	for _, id := range ids {
		for p := 0; p < 20; p++ {
			wg.Add(1)
			go func(id string, p int) {
				defer wg.Done()
				if p%2 == 0 {
					_, err := svc.ApplyPaletteOverride(ctx, id, replenishment.OverrideSelector{Depot: "M212", Article: "A1"}, p)
					errs <- err
					return
				}
				_, err := svc.Calculate(ctx, id, perPeriod(10))
				errs <- err
			}(id, p)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for _, id := range ids {
		res, err := svc.Result(ctx, id)
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		row := res.Rows[0]
		assert.Equal(t, row.UnitsPerPallet*float64(row.PalettesNeeded), row.QuantityToSend)
		assert.Equal(t, row.PalettesNeeded, res.Summary.TotalPalettes)
	}
	assert.Zero(t, svc.locks.size())
}
