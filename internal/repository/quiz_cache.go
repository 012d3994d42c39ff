package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"phish_trainer_backend/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const quizCacheKeyPrefix = "quiz:"

// QuizCache 题库读缓存，未命中时返回 (nil, nil)
type QuizCache interface {
	Get(ctx context.Context, id uint) (*model.Quiz, error)
	Set(ctx context.Context, quiz *model.Quiz) error
	Invalidate(ctx context.Context, id uint) error
}

type RedisQuizCache struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewQuizCache(rdb *redis.Client, ttl time.Duration) QuizCache {
	if rdb == nil {
		return NopQuizCache{}
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisQuizCache{RDB: rdb, TTL: ttl}
}

func quizCacheKey(id uint) string {
	return fmt.Sprintf("%s%d", quizCacheKeyPrefix, id)
}

// 缓存中保留标准答案，判分依赖它；对外输出前由服务层剥离
func (c *RedisQuizCache) Get(ctx context.Context, id uint) (*model.Quiz, error) {
	raw, err := c.RDB.Get(ctx, quizCacheKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get quiz")
	}

	return decodeQuiz(raw)
}

func (c *RedisQuizCache) Set(ctx context.Context, quiz *model.Quiz) error {
	raw, err := encodeQuiz(quiz)
	if err != nil {
		return err
	}
	return errors.Wrap(c.RDB.Set(ctx, quizCacheKey(quiz.ID), raw, c.TTL).Err(), "redis set quiz")
}

func encodeQuiz(quiz *model.Quiz) ([]byte, error) {
	raw, err := json.Marshal(quiz)
	return raw, errors.Wrap(err, "encode quiz")
}

func decodeQuiz(raw []byte) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return nil, errors.Wrap(err, "decode cached quiz")
	}
	return &quiz, nil
}

func (c *RedisQuizCache) Invalidate(ctx context.Context, id uint) error {
	return errors.Wrap(c.RDB.Del(ctx, quizCacheKey(id)).Err(), "redis del quiz")
}

// NopQuizCache 未配置 Redis 时使用
type NopQuizCache struct{}

func (NopQuizCache) Get(context.Context, uint) (*model.Quiz, error) { return nil, nil }
func (NopQuizCache) Set(context.Context, *model.Quiz) error          { return nil }
func (NopQuizCache) Invalidate(context.Context, uint) error          { return nil }
