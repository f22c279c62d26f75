package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/depot-replenishment/internal/config"
	"github.com/andresuchdata/depot-replenishment/internal/domain"
	"github.com/andresuchdata/depot-replenishment/internal/drive"
	"github.com/andresuchdata/depot-replenishment/internal/pipeline/replenishment"
	"github.com/andresuchdata/depot-replenishment/internal/sheet"
	"github.com/andresuchdata/depot-replenishment/pkg/logger"
)

// loadDataset reads the inputs from local files, or from Drive when
// --drive-folder is given, and normalizes them into one dataset.
func loadDataset(c *cli.Context, cfg *config.Config, n *replenishment.Normalizer) (*domain.Dataset, error) {
	inputs, err := collectInputs(c, cfg)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ds := &domain.Dataset{SessionID: "offline", CreatedAt: now, UpdatedAt: now}

	rows, err := sheet.ReadRows(bytes.NewReader(inputs.Orders.Data), inputs.Orders.Name)
	if err != nil {
		return nil, err
	}
	orders, report, err := n.NormalizeOrders(rows, nil)
	if err != nil {
		return nil, err
	}
	logReport(inputs.Orders.Name, report)
	ds = ds.WithOrders(orders, replenishment.DateRangeOf(orders), now)

	if f := inputs.Inventory; f != nil {
		rows, err := sheet.ReadRows(bytes.NewReader(f.Data), f.Name)
		if err != nil {
			return nil, err
		}
		inventory, report, err := n.NormalizeInventory(rows, nil)
		if err != nil {
			return nil, err
		}
		logReport(f.Name, report)
		ds = ds.WithInventory(inventory, now)
	}

	if f := inputs.Transit; f != nil {
		rows, err := sheet.ReadRows(bytes.NewReader(f.Data), f.Name)
		if err != nil {
			return nil, err
		}
		transit, report, err := n.NormalizeTransit(rows, nil)
		if err != nil {
			return nil, err
		}
		logReport(f.Name, report)
		ds = ds.WithTransit(transit, now)
	}

	return ds, nil
}

func collectInputs(c *cli.Context, cfg *config.Config) (*drive.Inputs, error) {
	if folder := c.String("drive-folder"); folder != "" {
		creds := c.String("drive-credentials")
		if creds == "" {
			creds = cfg.Drive.CredentialsFile
		}
		if creds == "" {
			return nil, fmt.Errorf("--drive-credentials or DRIVE_CREDENTIALS_FILE is required with --drive-folder")
		}
		svc, err := drive.NewServiceFromFile(c.Context, creds)
		if err != nil {
			return nil, err
		}
		return svc.FetchInputs(c.Context, folder)
	}

	if c.String("orders") == "" {
		return nil, fmt.Errorf("--orders or --drive-folder is required")
	}

	inputs := &drive.Inputs{}
	orders, err := readLocal(c.String("orders"))
	if err != nil {
		return nil, err
	}
	inputs.Orders = *orders

	if path := c.String("inventory"); path != "" {
		if inputs.Inventory, err = readLocal(path); err != nil {
			return nil, err
		}
	}
	if path := c.String("transit"); path != "" {
		if inputs.Transit, err = readLocal(path); err != nil {
			return nil, err
		}
	}
	return inputs, nil
}

func readLocal(path string) (*drive.InputFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &drive.InputFile{Name: filepath.Base(path), Data: data}, nil
}

func logReport(name string, r *replenishment.Report) {
	logger.Log.Info().
		Str("file", name).
		Str("layout", r.Layout).
		Int("rows", r.TotalRows).
		Int("accepted", r.Accepted).
		Int("dropped", r.Dropped).
		Int("invalid_numbers", r.InvalidNumbers).
		Int("unknown_packaging", r.UnknownPackaging).
		Msg("input normalized")
}
