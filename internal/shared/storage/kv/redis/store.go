package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"resume-feedback/internal/shared/storage/kv"
)

// Client is the subset of the go-redis API used by Store.
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *goredis.ScanCmd
	MGet(ctx context.Context, keys ...string) *goredis.SliceCmd
}

// Options holds Redis connection settings.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Store implements kv.Store on Redis strings.
type Store struct {
	client Client
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, opts Options) (*Store, *goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return New(client), client, nil
}

// New wraps an existing client.
func New(client Client) *Store {
	return &Store{client: client}
}

// Set stores value under key without expiry.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get returns the value for key or kv.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", kv.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

// List scans keys matching prefix and fetches their values.
func (s *Store) List(ctx context.Context, prefix string) ([]kv.Entry, error) {
	var (
		keys   []string
		cursor uint64
		seen   = make(map[string]struct{})
	)
	for {
		page, next, err := s.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		// SCAN may return a key more than once.
		for _, key := range page {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	out := make([]kv.Entry, 0, len(keys))
	for i, key := range keys {
		// Keys removed between SCAN and MGET come back nil.
		str, ok := values[i].(string)
		if !ok {
			continue
		}
		out = append(out, kv.Entry{Key: key, Value: str})
	}
	kv.SortEntries(out)
	return out, nil
}

var _ kv.Store = (*Store)(nil)
