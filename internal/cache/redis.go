package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps entries as Redis keys expiring after the class TTL.
type RedisStore struct {
	client    *redis.Client
	ttls      TTLs
	keyPrefix string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg RedisConfig, ttls TTLs) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttls == nil {
		ttls = DefaultTTLs()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "bookrelist:cache"
	}
	return &RedisStore{client: client, ttls: ttls, keyPrefix: prefix}, nil
}

func (s *RedisStore) key(class Class, bookID int64) string {
	return fmt.Sprintf("%s:%s:book_%d", s.keyPrefix, class, bookID)
}

func (s *RedisStore) Get(ctx context.Context, class Class, bookID int64) (json.RawMessage, error) {
	b, err := s.client.Get(ctx, s.key(class, bookID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, ErrMiss
	}
	return e.Data, nil
}

func (s *RedisStore) Set(ctx context.Context, class Class, bookID int64, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode cache data: %w", err)
	}
	b, err := json.Marshal(Entry{Timestamp: time.Now(), Data: raw})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := s.client.Set(ctx, s.key(class, bookID), b, s.ttls.of(class)).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, bookID int64) error {
	keys := make([]string, 0, len(Classes))
	for _, class := range Classes {
		keys = append(keys, s.key(class, bookID))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entries: %w", err)
	}
	return nil
}

// ClearExpired is a no-op: Redis expires keys on its own.
func (s *RedisStore) ClearExpired(ctx context.Context) (int, error) {
	return 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
