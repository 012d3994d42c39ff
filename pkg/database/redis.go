package database

import (
	"context"
	"fmt"
	"phish_trainer_backend/internal/config"
	"phish_trainer_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// InitRedis 未配置 host 时返回 nil，题库缓存退化为直读数据库
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 5,
	})

	ctx := context.Background()
	_, err := rdb.Ping(ctx).Result()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	logger.Log.Info("Redis connection established")
	return rdb, nil
}
