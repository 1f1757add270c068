package redis

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AnswerKeyLoader fetches the correct-option map from the backing store.
type AnswerKeyLoader interface {
	LoadAnswerKey(ctx context.Context) (map[string]string, error)
}

// AnswerKeyCache caches the answer key in a Redis hash and falls back to a
// loader on cache miss. Stored as: HSET quiz:answerkey {questionID} {optionID}.
// Concurrent cold loads collapse into one loader call.
type AnswerKeyCache struct {
	client *redis.Client
	loader AnswerKeyLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewAnswerKeyCache(client *redis.Client, loader AnswerKeyLoader, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

const answerKeyHash = "quiz:answerkey"

func (c *AnswerKeyCache) LoadAnswerKey(ctx context.Context) (map[string]string, error) {
	cached, err := c.client.HGetAll(ctx, answerKeyHash).Result()
	if err == nil && len(cached) > 0 {
		return cached, nil
	}

	result, err, _ := c.sf.Do(answerKeyHash, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := c.client.HGetAll(ctx, answerKeyHash).Result()
		if err == nil && len(cached) > 0 {
			return cached, nil
		}

		key, err := c.loader.LoadAnswerKey(ctx)
		if err != nil {
			return nil, err
		}

		if len(key) > 0 {
			pipe := c.client.Pipeline()
			for questionID, optionID := range key {
				pipe.HSet(ctx, answerKeyHash, questionID, optionID)
			}
			if ttl := c.ttlWithJitter(); ttl > 0 {
				pipe.Expire(ctx, answerKeyHash, ttl)
			}
			_, _ = pipe.Exec(ctx)
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]string), nil
}

// Invalidate drops the cached key, forcing the next load to hit the store.
// Called after admin CRUD mutates the question set.
func (c *AnswerKeyCache) Invalidate(ctx context.Context) {
	_ = c.client.Del(ctx, answerKeyHash).Err()
}

func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
