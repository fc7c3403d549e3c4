package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

func TestRedisOptionsCarryPoolSettings(t *testing.T) {
	opts := redisOptions(config.RedisConfig{
		Addr:         "cache:6379",
		DB:           2,
		PoolSize:     50,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: 1500 * time.Millisecond,
	})

	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 50, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
	assert.Equal(t, time.Second, opts.ReadTimeout)
	assert.Equal(t, 1500*time.Millisecond, opts.WriteTimeout)
}

func TestRedisOptionsDefaultDialTimeout(t *testing.T) {
	opts := redisOptions(config.RedisConfig{Addr: "cache:6379"})
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
}

func TestNewRedisConnects(t *testing.T) {
	server := miniredis.RunT(t)

	rdb := NewRedis(config.RedisConfig{Addr: server.Addr(), DialTimeout: time.Second}, zap.NewNop())
	t.Cleanup(rdb.Close)

	require.NoError(t, rdb.Ping(context.Background()))
}

func TestPingWithoutClient(t *testing.T) {
	var rdb *Redis
	assert.Error(t, rdb.Ping(context.Background()))
}
