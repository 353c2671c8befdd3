package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/safar/go-bookstore/internal/models"
)

const (
	keyPrefix  = "Cart:"
	lockPrefix = "CartLock:"
	lockTTL    = 5 * time.Second
)

// RedisStore keeps each cart as a JSON document that expires with the session.
type RedisStore struct {
	client *redis.Client
	locker *redislock.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		locker: redislock.New(client),
		ttl:    ttl,
	}
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]models.CartLine, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []models.CartLine{}, nil
		}
		return nil, err
	}

	var lines []models.CartLine
	if err := json.Unmarshal(val, &lines); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return lines, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, lines []models.CartLine) error {
	if len(lines) == 0 {
		return s.Delete(ctx, key)
	}

	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+key, data, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}

func (s *RedisStore) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := s.locker.Obtain(ctx, lockPrefix+key, lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 40),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, fmt.Errorf("cart %s is busy: %w", key, err)
		}
		return nil, err
	}

	return func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}, nil
}

// MemoryStore is a process-local Store used in tests and development.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string][]models.CartLine
	locks map[string]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts: make(map[string][]models.CartLine),
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]models.CartLine, len(s.carts[key]))
	copy(lines, s.carts[key])
	return lines, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, lines []models.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(lines) == 0 {
		delete(s.carts, key)
		return nil
	}
	stored := make([]models.CartLine, len(lines))
	copy(stored, lines)
	s.carts[key] = stored
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, key)
	return nil
}

func (s *MemoryStore) Lock(_ context.Context, key string) (func(), error) {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock, nil
}
