package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingKeyLoader struct {
	key   map[string]string
	calls int
}

func (l *countingKeyLoader) LoadAnswerKey(context.Context) (map[string]string, error) {
	l.calls++
	return l.key, nil
}

func TestAnswerKeyCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	loader := &countingKeyLoader{key: map[string]string{"1": "o2", "2": "o1"}}
	cache := NewAnswerKeyCache(client, loader, time.Minute)

	key, err := cache.LoadAnswerKey(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if key["1"] != "o2" || key["2"] != "o1" {
		t.Fatalf("unexpected key: %v", key)
	}

	// Second call should hit the redis hash, loader not incremented.
	if _, err := cache.LoadAnswerKey(context.Background()); err != nil {
		t.Fatalf("load 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}

	cache.Invalidate(context.Background())
	if _, err := cache.LoadAnswerKey(context.Background()); err != nil {
		t.Fatalf("load 3: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected loader hit after invalidation, got %d", loader.calls)
	}
}
