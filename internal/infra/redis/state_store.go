package redis

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore persists attempt state blobs in Redis, one key per namespace,
// so a client can rehydrate its session after a restart from any instance.
// Writes are best-effort per the storage contract: a failed write is logged
// and the attempt continues on in-process state.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	return &StateStore{client: client, ttl: ttl}
}

func (s *StateStore) ReadState(namespace string) ([]byte, bool) {
	data, err := s.client.Get(context.Background(), s.key(namespace)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("read attempt state %q: %v", namespace, err)
		return nil, false
	}
	return data, true
}

func (s *StateStore) WriteState(namespace string, data []byte) {
	if err := s.client.Set(context.Background(), s.key(namespace), data, s.ttl).Err(); err != nil {
		log.Printf("write attempt state %q: %v", namespace, err)
	}
}

func (s *StateStore) DeleteState(namespace string) {
	_ = s.client.Del(context.Background(), s.key(namespace)).Err()
}

func (s *StateStore) key(namespace string) string {
	return "attempt:state:" + namespace
}
