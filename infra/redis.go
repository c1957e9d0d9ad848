package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type Redis struct {
	Client *redis.Client
}

func NewRedis(config RedisConfig) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{
		Client: rdb,
	}, nil
}

// Ping 檢查連線並回傳延遲毫秒數
func (r *Redis) Ping(ctx context.Context) (float64, error) {
	start := time.Now()
	err := r.Client.Ping(ctx).Err()
	return float64(time.Since(start).Nanoseconds()) / 1e6, err
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
