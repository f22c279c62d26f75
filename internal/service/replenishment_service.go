package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/depot-replenishment/internal/assistant"
	"github.com/andresuchdata/depot-replenishment/internal/cache"
	"github.com/andresuchdata/depot-replenishment/internal/domain"
	"github.com/andresuchdata/depot-replenishment/internal/pipeline/replenishment"
	"github.com/andresuchdata/depot-replenishment/internal/repository"
	"github.com/andresuchdata/depot-replenishment/internal/sheet"
	"github.com/andresuchdata/depot-replenishment/internal/storage"
)

// ReplenishmentService runs the session workflow: uploads, calculation,
// palette overrides, suggestions, export and questions. Work on one session
// is serialized; different sessions never wait on each other.
type ReplenishmentService struct {
	engine        *replenishment.Engine
	normalizer    *replenishment.Normalizer
	sessions      cache.SessionStore
	refs          repository.ReferenceRepository
	storage       storage.ObjectStorage
	assistant     assistant.Completer
	localArticles []string
	locks         *sessionLocks
	now           func() time.Time
}

type Option func(*ReplenishmentService)

// WithStorage archives every export in the given bucket.
func WithStorage(s storage.ObjectStorage) Option {
	return func(svc *ReplenishmentService) { svc.storage = s }
}

func WithAssistant(c assistant.Completer) Option {
	return func(svc *ReplenishmentService) { svc.assistant = c }
}

// WithLocalArticles is the sourcing fallback used while the stored sourcing
// table is empty.
func WithLocalArticles(articles []string) Option {
	return func(svc *ReplenishmentService) { svc.localArticles = articles }
}

func WithClock(now func() time.Time) Option {
	return func(svc *ReplenishmentService) { svc.now = now }
}

func NewReplenishmentService(engine *replenishment.Engine, sessions cache.SessionStore, refs repository.ReferenceRepository, opts ...Option) *ReplenishmentService {
	svc := &ReplenishmentService{
		engine:     engine,
		normalizer: replenishment.NewNormalizer(engine.Config()),
		sessions:   sessions,
		refs:       refs,
		assistant:  assistant.Disabled(),
		locks:      newSessionLocks(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreateSession stores an empty dataset under a fresh id.
func (s *ReplenishmentService) CreateSession(ctx context.Context) (string, error) {
	now := s.now()
	ds := &domain.Dataset{SessionID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if err := s.sessions.SaveDataset(ctx, ds); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	log.Info().Str("session_id", ds.SessionID).Msg("session created")
	return ds.SessionID, nil
}

// DeleteSession drops the dataset and cached result of a session.
func (s *ReplenishmentService) DeleteSession(ctx context.Context, sessionID string) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	if _, err := s.sessions.GetDataset(ctx, sessionID); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	log.Info().Str("session_id", sessionID).Msg("session deleted")
	return nil
}

// UploadResult describes one accepted upload.
type UploadResult struct {
	SessionID string                `json:"session_id"`
	Filename  string                `json:"filename"`
	Records   int                   `json:"records"`
	Report    *replenishment.Report `json:"report"`
	DateRange *domain.DateRange     `json:"date_range,omitempty"`
	Depots    []string              `json:"depots,omitempty"`
}

func (s *ReplenishmentService) UploadOrders(ctx context.Context, sessionID, filename string, r io.Reader) (*UploadResult, error) {
	rows, err := readUpload(r, filename)
	if err != nil {
		return nil, err
	}
	orders, report, err := s.normalizer.NormalizeOrders(rows, nil)
	if err != nil {
		return nil, err
	}
	dateRange := replenishment.DateRangeOf(orders)

	if err := s.replaceDataset(ctx, sessionID, func(ds *domain.Dataset, now time.Time) *domain.Dataset {
		return ds.WithOrders(orders, dateRange, now)
	}); err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID).
		Str("layout", report.Layout).
		Int("accepted", report.Accepted).
		Int("dropped", report.Dropped).
		Msg("orders uploaded")

	return &UploadResult{
		SessionID: sessionID,
		Filename:  filename,
		Records:   len(orders),
		Report:    report,
		DateRange: dateRange,
		Depots:    distinctDepots(orders),
	}, nil
}

func (s *ReplenishmentService) UploadInventory(ctx context.Context, sessionID, filename string, r io.Reader) (*UploadResult, error) {
	rows, err := readUpload(r, filename)
	if err != nil {
		return nil, err
	}
	inventory, report, err := s.normalizer.NormalizeInventory(rows, nil)
	if err != nil {
		return nil, err
	}

	if err := s.replaceDataset(ctx, sessionID, func(ds *domain.Dataset, now time.Time) *domain.Dataset {
		return ds.WithInventory(inventory, now)
	}); err != nil {
		return nil, err
	}

	log.Info().Str("session_id", sessionID).Int("accepted", report.Accepted).Msg("inventory uploaded")
	return &UploadResult{SessionID: sessionID, Filename: filename, Records: len(inventory), Report: report}, nil
}

func (s *ReplenishmentService) UploadTransit(ctx context.Context, sessionID, filename string, r io.Reader) (*UploadResult, error) {
	rows, err := readUpload(r, filename)
	if err != nil {
		return nil, err
	}
	transit, report, err := s.normalizer.NormalizeTransit(rows, nil)
	if err != nil {
		return nil, err
	}

	if err := s.replaceDataset(ctx, sessionID, func(ds *domain.Dataset, now time.Time) *domain.Dataset {
		return ds.WithTransit(transit, now)
	}); err != nil {
		return nil, err
	}

	log.Info().Str("session_id", sessionID).Int("accepted", report.Accepted).Msg("transit uploaded")
	return &UploadResult{SessionID: sessionID, Filename: filename, Records: len(transit), Report: report}, nil
}

// replaceDataset swaps the session dataset for a new handle and drops the
// cached calculation, which no longer matches the data.
func (s *ReplenishmentService) replaceDataset(ctx context.Context, sessionID string, next func(*domain.Dataset, time.Time) *domain.Dataset) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	ds, err := s.sessions.GetDataset(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.sessions.SaveDataset(ctx, next(ds, s.now())); err != nil {
		return fmt.Errorf("save dataset: %w", err)
	}
	if err := s.sessions.DeleteResult(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("replenishment: drop stale result failed")
	}
	return nil
}

func readUpload(r io.Reader, filename string) ([][]string, error) {
	rows, err := sheet.ReadRows(r, filename)
	if err != nil {
		return nil, domain.NewValidationError("file", "%v", err)
	}
	return rows, nil
}

type ArticleOption struct {
	Code        string `json:"code"`
	Designation string `json:"designation,omitempty"`
}

// Options lists the values a client can filter a session on.
type Options struct {
	Depots    []string        `json:"depots"`
	Articles  []ArticleOption `json:"articles"`
	Packaging []string        `json:"packaging"`
}

func (s *ReplenishmentService) Options(ctx context.Context, sessionID string) (*Options, error) {
	ds, err := s.sessions.GetDataset(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	articles := map[string]string{}
	packaging := map[string]struct{}{}
	for _, o := range ds.Orders {
		if _, ok := articles[o.Article]; !ok || articles[o.Article] == "" {
			articles[o.Article] = o.Designation
		}
		packaging[o.Packaging] = struct{}{}
	}

	opts := &Options{
		Depots:    distinctDepots(ds.Orders),
		Articles:  make([]ArticleOption, 0, len(articles)),
		Packaging: make([]string, 0, len(packaging)),
	}
	for code, designation := range articles {
		opts.Articles = append(opts.Articles, ArticleOption{Code: code, Designation: designation})
	}
	sort.Slice(opts.Articles, func(i, j int) bool { return opts.Articles[i].Code < opts.Articles[j].Code })
	for p := range packaging {
		opts.Packaging = append(opts.Packaging, p)
	}
	sort.Strings(opts.Packaging)
	return opts, nil
}

// Calculate runs the engine on the session dataset and caches the result.
// The stored depot-article configuration applies unless the request brings
// its own.
func (s *ReplenishmentService) Calculate(ctx context.Context, sessionID string, req domain.CalculationRequest) (*domain.CalculationResult, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	ds, err := s.sessions.GetDataset(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if req.DepotArticles == nil {
		cfg, err := s.refs.GetDepotArticleConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load depot article config: %w", err)
		}
		if cfg.Enabled {
			req.DepotArticles = &cfg
		}
	}

	sourcing, err := s.sourcingLookup(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Calculate(ctx, ds, req, sourcing)
	if err != nil {
		return nil, err
	}
	result.CalculatedAt = s.now()

	if err := s.sessions.SaveResult(ctx, sessionID, result); err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}

	log.Info().
		Str("session_id", sessionID).
		Int("rows", result.Summary.TotalRows).
		Int("palettes", result.Summary.TotalPalettes).
		Int("warnings", len(result.Warnings)).
		Msg("replenishment calculated")
	return result, nil
}

func (s *ReplenishmentService) sourcingLookup(ctx context.Context) (replenishment.SourcingLookup, error) {
	table, err := s.refs.GetSourcingTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sourcing table: %w", err)
	}
	if len(table) == 0 {
		return replenishment.LocalArticles(s.localArticles), nil
	}
	return replenishment.StaticSourcing(table), nil
}

// Result returns the cached calculation of a session.
func (s *ReplenishmentService) Result(ctx context.Context, sessionID string) (*domain.CalculationResult, error) {
	result, ok, err := s.sessions.GetResult(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewValidationError("calculation", "no calculation for session %s, run calculate first", sessionID)
	}
	return result, nil
}

// ApplyPaletteOverride replaces the cached result with one where the selected
// row ships the given number of pallets.
func (s *ReplenishmentService) ApplyPaletteOverride(ctx context.Context, sessionID string, sel replenishment.OverrideSelector, palettes int) (*domain.CalculationResult, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	current, err := s.Result(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next, err := s.engine.ApplyPaletteOverride(current, sel, palettes)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SaveResult(ctx, sessionID, next); err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}

	log.Info().
		Str("session_id", sessionID).
		Str("depot", sel.Depot).
		Str("article", sel.Article).
		Int("palettes", palettes).
		Msg("palette override applied")
	return next, nil
}

func (s *ReplenishmentService) Palettes(ctx context.Context, sessionID string, sel replenishment.OverrideSelector) (int, error) {
	result, err := s.Result(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return replenishment.PalettesValue(result, sel)
}

func (s *ReplenishmentService) DepotSuggestions(ctx context.Context, sessionID, depot string) (*domain.DepotCompletion, error) {
	result, err := s.Result(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.engine.SuggestDepotCompletion(result, depot)
}

// ExportResult is a rendered workbook; ObjectKey is set when it was archived.
type ExportResult struct {
	Filename  string
	Data      []byte
	ObjectKey string
	Rows      int
}

// Export renders the selected rows, or every row when keys is empty.
func (s *ReplenishmentService) Export(ctx context.Context, sessionID string, keys []domain.RowKey) (*ExportResult, error) {
	result, err := s.Result(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rows := result.Rows
	if len(keys) > 0 {
		rows = make([]domain.CalculationRow, 0, len(keys))
		for _, k := range keys {
			row, ok := result.Row(k)
			if !ok {
				return nil, domain.NewValidationError("keys", "no row %s", k)
			}
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, domain.NewValidationError("keys", "nothing to export")
	}

	data, err := sheet.WriteExport(rows, result.Summary.Depots)
	if err != nil {
		return nil, fmt.Errorf("render export: %w", err)
	}

	now := s.now()
	out := &ExportResult{
		Filename: fmt.Sprintf("replenishment_%s.xlsx", now.Format("20060102_150405")),
		Data:     data,
		Rows:     len(rows),
	}

	if s.storage != nil {
		key := storage.ExportKey(sessionID, now)
		if err := s.storage.UploadObject(ctx, key, data, storage.XLSXContentType); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("replenishment: export archive failed")
		} else {
			out.ObjectKey = key
		}
	}
	return out, nil
}

// Ask answers a free-text question about the session data.
func (s *ReplenishmentService) Ask(ctx context.Context, sessionID, query string) (*assistant.Answer, error) {
	ds, err := s.sessions.GetDataset(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(ds.Orders) == 0 {
		return nil, domain.NewValidationError("orders", "no order data uploaded")
	}
	result, _, err := s.sessions.GetResult(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return assistant.Ask(ctx, s.assistant, ds, result, query)
}

func (s *ReplenishmentService) DepotArticleConfig(ctx context.Context) (domain.DepotArticleConfig, error) {
	return s.refs.GetDepotArticleConfig(ctx)
}

func (s *ReplenishmentService) SaveDepotArticleConfig(ctx context.Context, cfg domain.DepotArticleConfig) (domain.DepotArticleConfig, error) {
	clean := domain.DepotArticleConfig{Enabled: cfg.Enabled, Mappings: make(map[string][]string, len(cfg.Mappings))}
	for depot, articles := range cfg.Mappings {
		depot = strings.TrimSpace(depot)
		if depot == "" {
			return clean, domain.NewValidationError("depot_articles", "depot code must not be empty")
		}
		seen := map[string]struct{}{}
		for _, a := range articles {
			a = strings.TrimSpace(a)
			if _, dup := seen[a]; a == "" || dup {
				continue
			}
			seen[a] = struct{}{}
			clean.Mappings[depot] = append(clean.Mappings[depot], a)
		}
	}
	if err := s.refs.SaveDepotArticleConfig(ctx, clean); err != nil {
		return clean, fmt.Errorf("save depot article config: %w", err)
	}
	return s.refs.GetDepotArticleConfig(ctx)
}

func (s *ReplenishmentService) SourcingTable(ctx context.Context) (map[string]domain.SourcingTier, error) {
	return s.refs.GetSourcingTable(ctx)
}

func (s *ReplenishmentService) SaveSourcingTable(ctx context.Context, raw map[string]string) (map[string]domain.SourcingTier, error) {
	table := make(map[string]domain.SourcingTier, len(raw))
	for article, value := range raw {
		article = strings.TrimSpace(article)
		tier, ok := domain.ParseSourcingTier(value)
		if article == "" || !ok || tier == domain.SourcingUnknown {
			return nil, domain.NewValidationError("sourcing", "invalid entry %q: %q", article, value)
		}
		table[article] = tier
	}
	if err := s.refs.SaveSourcingTable(ctx, table); err != nil {
		return nil, fmt.Errorf("save sourcing table: %w", err)
	}
	return table, nil
}

func distinctDepots(orders []domain.OrderRecord) []string {
	set := map[string]struct{}{}
	for _, o := range orders {
		set[o.Depot] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
