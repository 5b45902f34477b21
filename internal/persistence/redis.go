package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/config"
)

// ErrRedisNotConfigured is returned by Ping on a nil client.
var ErrRedisNotConfigured = errors.New("redis client not configured")

// Redis holds the client backing the login attempt counters. Redis is not on
// the request path, so an unreachable server is logged and startup continues.
type Redis struct {
	Client *redis.Client
	logger *zap.Logger
}

// NewRedis builds the client and pings it once within the dial timeout.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("redis").With(zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	r := &Redis{Client: client, logger: logger}

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := r.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable; login throttling fails open until it recovers", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}
	return r
}

// Close closes the client.
func (r *Redis) Close() {
	if r == nil || r.Client == nil {
		return
	}
	if err := r.Client.Close(); err != nil && r.logger != nil {
		r.logger.Warn("close redis client", zap.Error(err))
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return ErrRedisNotConfigured
	}
	return r.Client.Ping(ctx).Err()
}
