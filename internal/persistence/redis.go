package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// Redis holds the client shared by the realtime bridge and the ticket cache.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds the client and checks the server once. An unreachable
// server is logged, not fatal: realtime fan-out stays local until it recovers.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	opts := redisOptions(cfg)
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable; realtime events stay on this instance",
			zap.String("addr", opts.Addr),
			zap.Error(err),
		)
	} else {
		logger.Info("redis connected",
			zap.String("addr", opts.Addr),
			zap.Int("db", opts.DB),
			zap.Int("pool_size", opts.PoolSize),
		)
	}

	return &Redis{Client: client}
}

func redisOptions(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return opts
}

// Close releases the connection pool.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping reports whether the server answers; used by the readiness check.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
