package rdx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/storage"

	"github.com/redis/go-redis/v9"
)

// NewClient connects to addr and checks the connection.
func NewClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("rdx: REDIS_URL is not set")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password, // empty if no password
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("rdx: ping %s: %w", addr, err)
	}
	return client, nil
}

// Storage is a storage.Storage on Redis. Zero TTL means keys never expire.
type Storage struct {
	conn *redis.Client
	ttl  time.Duration
}

func NewStorage(conn *redis.Client, ttl time.Duration) *Storage {
	return &Storage{conn: conn, ttl: ttl}
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.conn.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("rdx: get %s: %w", key, err)
	}
	return v, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if err := s.conn.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("rdx: set %s: %w", key, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.conn.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("rdx: del %s: %w", key, err)
	}
	return nil
}

// Locker hands out short-lived exclusive locks with SETNX.
type Locker struct {
	conn *redis.Client
}

func NewLocker(conn *redis.Client) *Locker {
	return &Locker{conn: conn}
}

// Acquire reports whether key was free and is now held for ttl.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.conn.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("rdx: setnx %s: %w", key, err)
	}
	return ok, nil
}

func (l *Locker) Release(ctx context.Context, key string) error {
	return l.conn.Del(ctx, key).Err()
}
