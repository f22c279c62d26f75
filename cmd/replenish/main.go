package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/depot-replenishment/internal/config"
	"github.com/andresuchdata/depot-replenishment/internal/domain"
	"github.com/andresuchdata/depot-replenishment/internal/pipeline/replenishment"
	"github.com/andresuchdata/depot-replenishment/internal/sheet"
	"github.com/andresuchdata/depot-replenishment/internal/storage"
	"github.com/andresuchdata/depot-replenishment/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "replenish",
		Usage: "Compute depot replenishment offline from order, stock and transit workbooks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "orders", Usage: "Orders workbook (xlsx or csv)"},
			&cli.StringFlag{Name: "inventory", Usage: "Central warehouse stock workbook"},
			&cli.StringFlag{Name: "transit", Usage: "Transit workbook"},
			&cli.StringFlag{
				Name:  "drive-folder",
				Usage: "Google Drive folder path to pull the newest input workbooks from",
			},
			&cli.StringFlag{
				Name:  "drive-credentials",
				Usage: "Service account JSON used with --drive-folder (defaults to DRIVE_CREDENTIALS_FILE)",
			},
			&cli.IntFlag{Name: "days", Usage: "Days of coverage to plan for", Value: 10},
			&cli.StringFlag{Name: "mode", Usage: "Consumption mode: per_period or daily_average", Value: string(domain.ModePerPeriod)},
			&cli.StringSliceFlag{Name: "packaging", Usage: "Only keep these packaging types"},
			&cli.StringSliceFlag{Name: "product", Usage: "Only keep these article codes"},
			&cli.StringSliceFlag{Name: "plan", Usage: "Production plan entry article=quantity, added to central stock"},
			&cli.StringFlag{Name: "depot", Usage: "Print truck completion suggestions for this depot"},
			&cli.StringFlag{Name: "out", Usage: "Export workbook path (defaults to a timestamped file under APP_DATA_DIR)"},
			&cli.BoolFlag{Name: "upload", Usage: "Also archive the export in object storage"},
			&cli.BoolFlag{Name: "json", Usage: "Print the summary as JSON"},
		},
		Before: func(c *cli.Context) error {
			cfg := config.Load()
			logger.Configure(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("replenish failed")
	}
}

func run(c *cli.Context) error {
	cfg := config.Load()

	engineCfg, err := replenishment.ConfigFromSettings(cfg.Replenishment)
	if err != nil {
		return err
	}
	engine, err := replenishment.NewEngine(engineCfg)
	if err != nil {
		return err
	}

	req, err := requestFromFlags(c)
	if err != nil {
		return err
	}

	ds, err := loadDataset(c, cfg, replenishment.NewNormalizer(engineCfg))
	if err != nil {
		return err
	}

	result, err := engine.Calculate(c.Context, ds, req, replenishment.LocalArticles(cfg.Replenishment.LocalArticles))
	if err != nil {
		return err
	}
	result.CalculatedAt = time.Now()

	for _, w := range result.Warnings {
		logger.Log.Warn().Str("kind", string(w.Kind)).Str("source", w.Source).Int("row", w.Row).Msg(w.Message)
	}

	data, err := sheet.WriteExport(result.Rows, result.Summary.Depots)
	if err != nil {
		return err
	}
	out := c.String("out")
	if out == "" {
		out = filepath.Join(cfg.App.DataDir, filepath.Base(storage.ExportKey("offline", result.CalculatedAt)))
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	if c.Bool("upload") {
		objects, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			return err
		}
		key := storage.ExportKey("offline", result.CalculatedAt)
		if err := objects.UploadObject(c.Context, key, data, storage.XLSXContentType); err != nil {
			return err
		}
		logger.Log.Info().Str("key", key).Msg("export archived")
	}

	s := result.Summary
	logger.Log.Info().
		Str("out", out).
		Int("rows", s.TotalRows).
		Int("depots", s.TotalDepots).
		Int("palettes", s.TotalPalettes).
		Int("trucks", s.TotalTrucks).
		Int("high_priority", s.Priority.High).
		Msg("replenishment written")

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return err
		}
	}

	if depot := c.String("depot"); depot != "" {
		completion, err := engine.SuggestDepotCompletion(result, depot)
		if err != nil {
			return err
		}
		printCompletion(completion)
	}
	return nil
}

func requestFromFlags(c *cli.Context) (domain.CalculationRequest, error) {
	req := domain.CalculationRequest{
		Days: c.Int("days"),
		Mode: domain.ConsumptionMode(c.String("mode")),
		Filters: domain.Filters{
			Products: c.StringSlice("product"),
		},
	}
	if c.IsSet("packaging") {
		req.Filters.Packaging = c.StringSlice("packaging")
	}

	plan, err := parsePlan(c.StringSlice("plan"))
	if err != nil {
		return req, err
	}
	req.ProductionPlan = plan
	return req, nil
}

// parsePlan reads article=quantity pairs.
func parsePlan(entries []string) ([]domain.ProductionPlanEntry, error) {
	var plan []domain.ProductionPlanEntry
	for _, entry := range entries {
		article, qty, ok := strings.Cut(entry, "=")
		article = strings.TrimSpace(article)
		if !ok || article == "" {
			return nil, fmt.Errorf("invalid --plan %q, want article=quantity", entry)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(qty), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --plan quantity %q: %w", qty, err)
		}
		plan = append(plan, domain.ProductionPlanEntry{Article: article, Quantity: v})
	}
	return plan, nil
}

func printCompletion(dc *domain.DepotCompletion) {
	fmt.Printf("%s: %d/%d palettes (%s), %d to add\n", dc.Depot, dc.CurrentPalettes, dc.TargetPalettes, dc.Efficiency, dc.PalettesToAdd)
	for _, s := range dc.Suggestions {
		fmt.Printf("  %-10s %-6s %3d palettes  %8.0f units  stock %8.0f  %s\n",
			s.Article, s.Packaging, s.SuggestedPalettes, s.SuggestedQuantity, s.CentralStock, s.FeasibilityText)
	}
}
