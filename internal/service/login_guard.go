package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	MaxLoginFailures  = 5
	LoginLockDuration = 15 * time.Minute
)

// LoginGuard 连续登录失败达到上限后锁定账号一段时间
type LoginGuard interface {
	Locked(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

// RedisLoginGuard 失败次数存在 Redis，多实例共享
type RedisLoginGuard struct {
	Redis       *redis.Client
	MaxFailures int64
	Window      time.Duration
}

// NewLoginGuard Redis 未启用时不做限制
func NewLoginGuard(rdb *redis.Client) LoginGuard {
	if rdb == nil {
		return NopLoginGuard{}
	}
	return &RedisLoginGuard{
		Redis:       rdb,
		MaxFailures: MaxLoginFailures,
		Window:      LoginLockDuration,
	}
}

// 用户名做哈希，避免把原始输入拼进 key
func loginFailureKey(username string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(username)))
	return "login_failures:" + hex.EncodeToString(sum[:])
}

func (g *RedisLoginGuard) Locked(ctx context.Context, username string) (bool, error) {
	n, err := g.Redis.Get(ctx, loginFailureKey(username)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n >= g.MaxFailures, nil
}

// RecordFailure 首次失败时开始计时，窗口到期后自动清零
func (g *RedisLoginGuard) RecordFailure(ctx context.Context, username string) error {
	key := loginFailureKey(username)
	n, err := g.Redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return g.Redis.Expire(ctx, key, g.Window).Err()
	}
	return nil
}

func (g *RedisLoginGuard) Reset(ctx context.Context, username string) error {
	return g.Redis.Del(ctx, loginFailureKey(username)).Err()
}

type NopLoginGuard struct{}

func (NopLoginGuard) Locked(context.Context, string) (bool, error) { return false, nil }
func (NopLoginGuard) RecordFailure(context.Context, string) error  { return nil }
func (NopLoginGuard) Reset(context.Context, string) error          { return nil }
