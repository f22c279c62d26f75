package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

func TestMemoryReferenceRepository_Sourcing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryReferenceRepository([]string{"1011", "1016"})

	table, err := repo.GetSourcingTable(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.SourcingTier{"1011": domain.SourcingLocal, "1016": domain.SourcingLocal}, table)

	table["9999"] = domain.SourcingExternal
	again, err := repo.GetSourcingTable(ctx)
	require.NoError(t, err)
	assert.NotContains(t, again, "9999", "callers get a copy")

	require.NoError(t, repo.SaveSourcingTable(ctx, map[string]domain.SourcingTier{"2011": domain.SourcingExternal}))
	table, err = repo.GetSourcingTable(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.SourcingTier{"2011": domain.SourcingExternal}, table)
}

func TestMemoryReferenceRepository_DepotArticles(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryReferenceRepository(nil)

	cfg, err := repo.GetDepotArticleConfig(ctx)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.Mappings)

	in := domain.DepotArticleConfig{Enabled: true, Mappings: map[string][]string{"M212": {"1016", "1011"}}}
	require.NoError(t, repo.SaveDepotArticleConfig(ctx, in))
	in.Mappings["M212"][0] = "changed"

	cfg, err = repo.GetDepotArticleConfig(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"1011", "1016"}, cfg.Mappings["M212"])
}
