// Package redis persists the bearer token in Redis, letting several
// terminals on one host share a login.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/niksmo/shopfront/internal/core/port"
	"github.com/redis/go-redis/v9"
)

var _ port.TokenStore = (*Store)(nil)

type Config struct {
	Addr      string
	KeyPrefix string
	Key       string
}

type Store struct {
	client *redis.Client
	key    string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	const op = "redis.New"

	if cfg.Key == "" {
		return nil, fmt.Errorf("%s: token key is empty", op)
	}
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}

	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(ctx).Err(); err != nil {
		cl.Close()
		return nil, fmt.Errorf("%s: redis ping: %w", op, err)
	}

	slog.Info("token store is ready", "op", op, "addr", addr)
	return &Store{client: cl, key: cfg.KeyPrefix + cfg.Key}, nil
}

func (s *Store) Load(ctx context.Context) (string, error) {
	const op = "redis.Store.Load"

	token, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

func (s *Store) Save(ctx context.Context, token string) error {
	const op = "redis.Store.Save"

	if err := s.client.Set(ctx, s.key, token, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	const op = "redis.Store.Clear"

	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) Close() {
	const op = "redis.Store.Close"
	log := slog.With("op", op)

	if err := s.client.Close(); err != nil {
		log.Error("failed to close", "err", err)
		return
	}
	log.Info("token store is closed")
}
