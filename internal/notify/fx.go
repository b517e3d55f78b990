package notify

import (
	"context"

	"github.com/smallbiznis/gatekeeper/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient returns a redis client, or nil when redis is not configured.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// NewBus picks the redis-backed bus when redis is configured, otherwise the
// in-process bus.
func NewBus(lc fx.Lifecycle, client *redis.Client, log *zap.Logger) Bus {
	if client == nil {
		log.Info("invalidation bus running in-process")
		return NewMemoryBus()
	}

	bus := NewRedisBus(client, log)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return bus.Start(ctx) },
		OnStop:  func(ctx context.Context) error { return bus.Stop(ctx) },
	})
	return bus
}

// Module provides the invalidation bus and the shared redis client.
var Module = fx.Module("notify",
	fx.Provide(NewRedisClient),
	fx.Provide(NewBus),
)
