package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fahadazizz/knowledg-rag/rag"
)

// RedisStore implements rag.SessionStore on a Redis list per thread
type RedisStore struct {
	client *redis.Client
	prefix string
	window int
	ttl    time.Duration
}

// RedisOptions configuration for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "krag:"
	Window   int           // Turns kept per thread, default DefaultWindow
	TTL      time.Duration // Thread expiration, default 0 (no expiration)
}

// NewRedisStore creates a new Redis session store
func NewRedisStore(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisStoreWithClient(client, opts)
}

// NewRedisStoreWithClient wraps an existing client, useful for tests
func NewRedisStoreWithClient(client *redis.Client, opts RedisOptions) *RedisStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "krag:"
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		window: window,
		ttl:    opts.TTL,
	}
}

var _ rag.SessionStore = (*RedisStore)(nil)

func (s *RedisStore) threadKey(threadID string) string {
	return fmt.Sprintf("%sthread:%s", s.prefix, threadID)
}

// Load returns the thread's turns oldest first
func (s *RedisStore) Load(ctx context.Context, threadID string) ([]rag.Turn, error) {
	items, err := s.client.LRange(ctx, s.threadKey(threadID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}

	turns := make([]rag.Turn, 0, len(items))
	for _, item := range items {
		var turn rag.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Append pushes the turn onto the thread list and trims to the window
func (s *RedisStore) Append(ctx context.Context, threadID string, turn rag.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	key := s.threadKey(threadID)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.window), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append turn to thread %s: %w", threadID, err)
	}
	return nil
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
