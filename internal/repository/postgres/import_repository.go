package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

// ImportRepository upserts reference rows one by one over a plain
// database/sql handle, as used by the seed command.
type ImportRepository struct {
	db *sql.DB
}

func NewImportRepository(db *sql.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

func (r *ImportRepository) UpsertSourcingArticle(ctx context.Context, article string, tier domain.SourcingTier) error {
	query := `
		INSERT INTO sourcing_articles (article, tier, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (article)
		DO UPDATE SET tier = EXCLUDED.tier, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, article, string(tier)); err != nil {
		return fmt.Errorf("failed to upsert sourcing article %s: %w", article, err)
	}
	return nil
}

func (r *ImportRepository) UpsertDepotArticle(ctx context.Context, depot, article string) error {
	query := `
		INSERT INTO depot_article_config (depot, article, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (depot, article)
		DO UPDATE SET updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, depot, article); err != nil {
		return fmt.Errorf("failed to upsert depot article %s/%s: %w", depot, article, err)
	}
	return nil
}

func (r *ImportRepository) SetDepotArticlesEnabled(ctx context.Context, enabled bool) error {
	query := `
		INSERT INTO reference_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	value := "false"
	if enabled {
		value = "true"
	}
	if _, err := r.db.ExecContext(ctx, query, depotArticlesEnabledKey, value); err != nil {
		return fmt.Errorf("failed to set depot article flag: %w", err)
	}
	return nil
}
