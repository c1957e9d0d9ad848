package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"coffee-backend/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	countGenerationKey = "coffee:count:gen"
	countKeyPrefix     = "coffee:count"
)

// CountCacheService 以 Redis 快取杯數統計。
// 每次杯數寫入都會遞增 generation，舊的 key 自然失效並由 TTL 回收。
type CountCacheService struct {
	logger zerolog.Logger
	client *redis.Client
	ttl    time.Duration
}

// NewCountCacheService client 為 nil 時所有操作皆為 no-op
func NewCountCacheService(logger zerolog.Logger, client *redis.Client, ttl time.Duration) *CountCacheService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CountCacheService{
		logger: logger.With().Str("module", "count_cache_service").Logger(),
		client: client,
		ttl:    ttl,
	}
}

func (s *CountCacheService) enabled() bool {
	return s != nil && s.client != nil
}

// CountKey 組出快取 key，scope 例如 "total" 或 "today:2024-03-10"
func CountKey(generation int64, scope, username string) string {
	if username == "" {
		return fmt.Sprintf("%s:%d:%s:*", countKeyPrefix, generation, scope)
	}
	return fmt.Sprintf("%s:%d:%s:user:%s", countKeyPrefix, generation, scope, username)
}

func (s *CountCacheService) generation(ctx context.Context) (int64, error) {
	gen, err := s.client.Get(ctx, countGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// noGeneration Get 無法取得 generation 時回傳，Set 會略過寫入
const noGeneration int64 = -1

// Get 讀取快取，回傳讀到的 generation 供 Set 使用，第三個回傳值表示是否命中
func (s *CountCacheService) Get(ctx context.Context, scope, username string) (int64, int64, bool) {
	if !s.enabled() {
		return 0, noGeneration, false
	}

	gen, err := s.generation(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("讀取杯數快取版本失敗")
		metrics.RecordCountCache("error")
		return 0, noGeneration, false
	}

	value, err := s.client.Get(ctx, CountKey(gen, scope, username)).Result()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCountCache("miss")
		return 0, gen, false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("scope", scope).Msg("讀取杯數快取失敗")
		metrics.RecordCountCache("error")
		return 0, noGeneration, false
	}

	count, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		metrics.RecordCountCache("error")
		return 0, gen, false
	}
	metrics.RecordCountCache("hit")
	return count, gen, true
}

// Set 以查詢前讀到的 generation 寫入快取。
// 查詢期間若有杯數寫入，generation 已遞增，這筆舊結果只會落在不再被讀取的 key。
func (s *CountCacheService) Set(ctx context.Context, generation int64, scope, username string, count int64) {
	if !s.enabled() || generation < 0 {
		return
	}
	if err := s.client.Set(ctx, CountKey(generation, scope, username), count, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("scope", scope).Msg("寫入杯數快取失敗")
	}
}

// Invalidate 遞增 generation，使所有已快取的統計失效
func (s *CountCacheService) Invalidate(ctx context.Context) {
	if !s.enabled() {
		return
	}
	if err := s.client.Incr(ctx, countGenerationKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("杯數快取失效失敗")
	}
}
