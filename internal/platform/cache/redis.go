package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"qna_catalog/internal/domain/model"
)

const questionListKey = "questions:subtrees:v1"

// QuestionCache keeps the fully assembled question list in Redis so the
// concurrent fan-out only runs on a cold read. Mutations invalidate the
// key. A nil *QuestionCache is a valid no-op cache.
type QuestionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func Connect(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("cache.Connect ping: %w", err)
	}
	return rdb, nil
}

func NewQuestionCache(rdb *redis.Client, ttl time.Duration) *QuestionCache {
	return &QuestionCache{rdb: rdb, ttl: ttl}
}

// GetAll returns the cached listing and whether the key was present.
// Backend or decode failures are treated as a miss.
func (c *QuestionCache) GetAll(ctx context.Context) ([]model.QuestionResponse, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, questionListKey).Bytes()
	if err != nil {
		return nil, false
	}
	var responses []model.QuestionResponse
	if err := json.Unmarshal(raw, &responses); err != nil {
		return nil, false
	}
	return responses, true
}

func (c *QuestionCache) SetAll(ctx context.Context, responses []model.QuestionResponse) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(responses)
	if err != nil {
		return fmt.Errorf("QuestionCache.SetAll marshal: %w", err)
	}
	if err := c.rdb.Set(ctx, questionListKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("QuestionCache.SetAll set: %w", err)
	}
	return nil
}

func (c *QuestionCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, questionListKey).Err(); err != nil {
		return fmt.Errorf("QuestionCache.Invalidate: %w", err)
	}
	return nil
}
