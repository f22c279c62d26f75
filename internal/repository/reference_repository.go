package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

// ReferenceRepository stores the data shared by every session: the
// depot-article configuration and the article sourcing table.
type ReferenceRepository interface {
	GetDepotArticleConfig(ctx context.Context) (domain.DepotArticleConfig, error)
	SaveDepotArticleConfig(ctx context.Context, cfg domain.DepotArticleConfig) error
	GetSourcingTable(ctx context.Context) (map[string]domain.SourcingTier, error)
	SaveSourcingTable(ctx context.Context, table map[string]domain.SourcingTier) error
}

type memoryReferenceRepository struct {
	mu       sync.RWMutex
	config   domain.DepotArticleConfig
	sourcing map[string]domain.SourcingTier
}

// NewMemoryReferenceRepository returns a process-local repository whose
// sourcing table starts with the given local articles.
func NewMemoryReferenceRepository(localArticles []string) ReferenceRepository {
	sourcing := make(map[string]domain.SourcingTier, len(localArticles))
	for _, a := range localArticles {
		sourcing[a] = domain.SourcingLocal
	}
	return &memoryReferenceRepository{
		config:   domain.DepotArticleConfig{Mappings: map[string][]string{}},
		sourcing: sourcing,
	}
}

func (r *memoryReferenceRepository) GetDepotArticleConfig(_ context.Context) (domain.DepotArticleConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneDepotArticleConfig(r.config), nil
}

func (r *memoryReferenceRepository) SaveDepotArticleConfig(_ context.Context, cfg domain.DepotArticleConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = cloneDepotArticleConfig(cfg)
	return nil
}

func (r *memoryReferenceRepository) GetSourcingTable(_ context.Context) (map[string]domain.SourcingTier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]domain.SourcingTier, len(r.sourcing))
	for k, v := range r.sourcing {
		out[k] = v
	}
	return out, nil
}

func (r *memoryReferenceRepository) SaveSourcingTable(_ context.Context, table map[string]domain.SourcingTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sourcing = make(map[string]domain.SourcingTier, len(table))
	for k, v := range table {
		r.sourcing[k] = v
	}
	return nil
}

func cloneDepotArticleConfig(cfg domain.DepotArticleConfig) domain.DepotArticleConfig {
	out := domain.DepotArticleConfig{
		Enabled:  cfg.Enabled,
		Mappings: make(map[string][]string, len(cfg.Mappings)),
	}
	for depot, articles := range cfg.Mappings {
		list := append([]string(nil), articles...)
		sort.Strings(list)
		out.Mappings[depot] = list
	}
	return out
}
