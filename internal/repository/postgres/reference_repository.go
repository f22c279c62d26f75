package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
	"github.com/andresuchdata/depot-replenishment/internal/repository"
)

const depotArticlesEnabledKey = "depot_articles_enabled"

type referenceRepository struct {
	db *DB
}

func NewReferenceRepository(db *DB) repository.ReferenceRepository {
	return &referenceRepository{db: db}
}

type depotArticleRow struct {
	Depot   string `db:"depot"`
	Article string `db:"article"`
}

type sourcingRow struct {
	Article string `db:"article"`
	Tier    string `db:"tier"`
}

func (r *referenceRepository) GetDepotArticleConfig(ctx context.Context) (domain.DepotArticleConfig, error) {
	cfg := domain.DepotArticleConfig{Mappings: map[string][]string{}}

	var value string
	err := r.db.GetContext(ctx, &value, `SELECT value FROM reference_settings WHERE key = $1`, depotArticlesEnabledKey)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return cfg, fmt.Errorf("error reading depot article flag: %w", err)
	default:
		cfg.Enabled, _ = strconv.ParseBool(value)
	}

	var rows []depotArticleRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT depot, article FROM depot_article_config ORDER BY depot, article`); err != nil {
		return cfg, fmt.Errorf("error reading depot articles: %w", err)
	}
	for _, row := range rows {
		cfg.Mappings[row.Depot] = append(cfg.Mappings[row.Depot], row.Article)
	}
	return cfg, nil
}

func (r *referenceRepository) SaveDepotArticleConfig(ctx context.Context, cfg domain.DepotArticleConfig) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reference_settings (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key)
			DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, depotArticlesEnabledKey, strconv.FormatBool(cfg.Enabled))
		if err != nil {
			return fmt.Errorf("failed to save depot article flag: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM depot_article_config`); err != nil {
			return fmt.Errorf("failed to clear depot articles: %w", err)
		}

		var rows []depotArticleRow
		for depot, articles := range cfg.Mappings {
			for _, a := range articles {
				rows = append(rows, depotArticleRow{Depot: depot, Article: a})
			}
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO depot_article_config (depot, article)
			VALUES (:depot, :article)
			ON CONFLICT DO NOTHING
		`, rows); err != nil {
			return fmt.Errorf("failed to insert depot articles: %w", err)
		}
		return nil
	})
}

func (r *referenceRepository) GetSourcingTable(ctx context.Context) (map[string]domain.SourcingTier, error) {
	var rows []sourcingRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT article, tier FROM sourcing_articles`); err != nil {
		return nil, fmt.Errorf("error reading sourcing table: %w", err)
	}

	table := make(map[string]domain.SourcingTier, len(rows))
	for _, row := range rows {
		if tier, ok := domain.ParseSourcingTier(row.Tier); ok {
			table[row.Article] = tier
		}
	}
	return table, nil
}

func (r *referenceRepository) SaveSourcingTable(ctx context.Context, table map[string]domain.SourcingTier) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sourcing_articles`); err != nil {
			return fmt.Errorf("failed to clear sourcing table: %w", err)
		}
		if len(table) == 0 {
			return nil
		}

		rows := make([]sourcingRow, 0, len(table))
		for article, tier := range table {
			rows = append(rows, sourcingRow{Article: article, Tier: string(tier)})
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO sourcing_articles (article, tier)
			VALUES (:article, :tier)
		`, rows); err != nil {
			return fmt.Errorf("failed to insert sourcing table: %w", err)
		}
		return nil
	})
}
