package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anchorzup/url-shortener/internal/models"
)

// CacheRepository кэш записей коротких ссылок по коду.
type CacheRepository interface {
	Get(ctx context.Context, code string) (*models.ShortURL, error)
	Set(ctx context.Context, code string, url *models.ShortURL, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
}

type cacheRepository struct {
	redis *RedisDB
}

func NewCacheRepository(redis *RedisDB) CacheRepository {
	return &cacheRepository{redis: redis}
}

func (r *cacheRepository) Get(ctx context.Context, code string) (*models.ShortURL, error) {
	data, err := r.redis.Client.Get(ctx, r.key(code)).Bytes()
	if err != nil {
		return nil, err
	}

	var url models.ShortURL
	if err := json.Unmarshal(data, &url); err != nil {
		return nil, fmt.Errorf("failed to unmarshal short url: %w", err)
	}

	// Флаг не сериализуется в JSON; в кэш попадают только активные записи.
	url.IsActive = true

	return &url, nil
}

func (r *cacheRepository) Set(ctx context.Context, code string, url *models.ShortURL, ttl time.Duration) error {
	data, err := json.Marshal(url)
	if err != nil {
		return fmt.Errorf("failed to marshal short url: %w", err)
	}

	return r.redis.Client.Set(ctx, r.key(code), data, ttl).Err()
}

func (r *cacheRepository) Delete(ctx context.Context, code string) error {
	return r.redis.Client.Del(ctx, r.key(code)).Err()
}

func (r *cacheRepository) key(code string) string {
	return "shorturl:" + code
}
