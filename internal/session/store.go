package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store interface {
	Get(ctx context.Context, token string) (*Session, bool, error)
	Save(ctx context.Context, s *Session) error
	Destroy(ctx context.Context, token string) error
}

const keyPrefix = "Session:"

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Get loads the session and slides its expiry forward, so a session that is
// only read stays alive while it is in use.
func (s *RedisStore) Get(ctx context.Context, token string) (*Session, bool, error) {
	val, err := s.client.GetEx(ctx, keyPrefix+token, s.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	sess := &Session{}
	if err := json.Unmarshal(val, sess); err != nil {
		return nil, false, fmt.Errorf("decode session: %w", err)
	}
	sess.Token = token
	return sess, true, nil
}

// Save writes the session and slides its expiry forward.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+sess.Token, data, s.ttl).Err(); err != nil {
		return err
	}
	sess.dirty = false
	return nil
}

func (s *RedisStore) Destroy(ctx context.Context, token string) error {
	return s.client.Del(ctx, keyPrefix+token).Err()
}

// MemoryStore keeps sessions in process; for tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Session, bool, error) {
	s.mu.Lock()
	data, ok := s.sessions[token]
	s.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	sess := &Session{}
	if err := json.Unmarshal(data, sess); err != nil {
		return nil, false, err
	}
	sess.Token = token
	return sess, true, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[sess.Token] = data
	s.mu.Unlock()
	sess.dirty = false
	return nil
}

func (s *MemoryStore) Destroy(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}
