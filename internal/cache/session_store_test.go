package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/depot-replenishment/internal/config"
	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

func TestMemorySessionStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	_, err := store.GetDataset(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, _, err = store.GetResult(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, store.SaveResult(ctx, "missing", &domain.CalculationResult{}), domain.ErrSessionNotFound)

	ds := &domain.Dataset{SessionID: "s1"}
	require.NoError(t, store.SaveDataset(ctx, ds))

	got, err := store.GetDataset(ctx, "s1")
	require.NoError(t, err)
	assert.Same(t, ds, got)

	res, ok, err := store.GetResult(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, res)

	result := &domain.CalculationResult{ReferencePeriodDays: 30}
	require.NoError(t, store.SaveResult(ctx, "s1", result))
	res, ok, err = store.GetResult(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, result, res)

	require.NoError(t, store.DeleteResult(ctx, "s1"))
	_, ok, err = store.GetResult(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.GetDataset(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemorySessionStore_ConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			require.NoError(t, store.SaveDataset(ctx, &domain.Dataset{SessionID: id}))
			require.NoError(t, store.SaveResult(ctx, id, &domain.CalculationResult{ReferencePeriodDays: float64(i)}))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 32; i++ {
		res, ok, err := store.GetResult(ctx, fmt.Sprintf("s%d", i))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, float64(i), res.ReferencePeriodDays)
	}
}

func TestNewSessionStore_DisabledUsesMemory(t *testing.T) {
	store, err := NewSessionStore(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	_, isMemory := store.(*memorySessionStore)
	assert.True(t, isMemory)
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@cache:6380/2"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "://bad"})
	assert.Error(t, err)
}

func TestSessionKeys(t *testing.T) {
	assert.Equal(t, "replenishment:session:abc:dataset", datasetKey("abc"))
	assert.Equal(t, "replenishment:session:abc:result", resultKey("abc"))
}

// Results travel through redis as JSON; infinite coverage must survive it.
func TestCalculationResultPayload(t *testing.T) {
	in := domain.CalculationResult{
		Rows: []domain.CalculationRow{
			{Depot: "M212", Article: "1011", Packaging: "verre", DaysOfCoverage: domain.InfiniteCoverage()},
			{Depot: "M212", Article: "1016", Packaging: "pet", DaysOfCoverage: domain.FiniteCoverage(2.125)},
		},
		CalculatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(in)
	require.NoError(t, err)

	var out domain.CalculationResult
	require.NoError(t, json.Unmarshal(payload, &out))
	assert.True(t, out.Rows[0].DaysOfCoverage.Infinite)
	assert.Equal(t, 2.125, out.Rows[1].DaysOfCoverage.Days)
	assert.True(t, in.CalculatedAt.Equal(out.CalculatedAt))
}
