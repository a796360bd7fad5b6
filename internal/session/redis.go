package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tendawaks/dialogate/internal/auth"
	"github.com/tendawaks/dialogate/internal/config"
)

// RedisStore keeps bindings in Redis so several gateway replicas share them.
// Each key carries its own expiry; no reaper runs.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return &RedisStore{
		client: client,
		prefix: cfg.Prefix,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func (r *RedisStore) Save(ctx context.Context, key string, id auth.Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := r.client.SetEx(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (auth.Identity, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return auth.Identity{}, ErrNotFound
		}
		return auth.Identity{}, fmt.Errorf("get session: %w", err)
	}

	var id auth.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return auth.Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	return id, nil
}

func (r *RedisStore) Start() {}

func (r *RedisStore) Shutdown() {
	if err := r.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		r.logger.Warn("close redis client", "error", err)
	}
}
