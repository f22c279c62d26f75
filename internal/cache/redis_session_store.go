package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/depot-replenishment/internal/config"
	"github.com/andresuchdata/depot-replenishment/internal/domain"
)

const (
	sessionKeyPrefix = "replenishment:session"
	scanBatchSize    = 100
)

type redisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func newRedisSessionStore(cfg config.CacheConfig) (*redisSessionStore, error) {
	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &redisSessionStore{client: client, ttl: ttl}, nil
}

func sessionPrefix(sessionID string) string {
	return fmt.Sprintf("%s:%s:", sessionKeyPrefix, sessionID)
}

func datasetKey(sessionID string) string {
	return sessionPrefix(sessionID) + "dataset"
}

func resultKey(sessionID string) string {
	return sessionPrefix(sessionID) + "result"
}

func (s *redisSessionStore) GetDataset(ctx context.Context, sessionID string) (*domain.Dataset, error) {
	payload, err := s.client.Get(ctx, datasetKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var ds domain.Dataset
	if err := json.Unmarshal(payload, &ds); err != nil {
		return nil, fmt.Errorf("decode session dataset: %w", err)
	}
	return &ds, nil
}

func (s *redisSessionStore) SaveDataset(ctx context.Context, ds *domain.Dataset) error {
	payload, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode session dataset: %w", err)
	}
	if err := s.client.Set(ctx, datasetKey(ds.SessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *redisSessionStore) GetResult(ctx context.Context, sessionID string) (*domain.CalculationResult, bool, error) {
	payload, err := s.client.Get(ctx, resultKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		exists, existsErr := s.client.Exists(ctx, datasetKey(sessionID)).Result()
		if existsErr != nil {
			return nil, false, fmt.Errorf("redis exists failed: %w", existsErr)
		}
		if exists == 0 {
			return nil, false, domain.ErrSessionNotFound
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result domain.CalculationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode session result: %w", err)
	}
	return &result, true, nil
}

func (s *redisSessionStore) SaveResult(ctx context.Context, sessionID string, result *domain.CalculationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode session result: %w", err)
	}

	// keep both keys alive for the same window
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, resultKey(sessionID), payload, s.ttl)
	pipe.Expire(ctx, datasetKey(sessionID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *redisSessionStore) DeleteResult(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, resultKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (s *redisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return deleteKeysWithPrefix(ctx, s.client, sessionPrefix(sessionID), scanBatchSize)
}
