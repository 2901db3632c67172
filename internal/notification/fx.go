package notification

import (
	"context"

	"github.com/haulbase/haulbase/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification",
	fx.Provide(NewHub),
	fx.Provide(NewRedisClient),
	fx.Provide(NewRedisPublisher),
	fx.Provide(NewFanout),
)

// NewRedisClient returns nil when no Redis address is configured; sinks
// treat a nil client as disabled.
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

// Fanout delivers each fact to every configured sink.
type Fanout struct {
	sinks []Sink
}

func NewFanout(hub *Hub, publisher *RedisPublisher, log *zap.Logger) Sink {
	sinks := []Sink{hub}
	if publisher != nil {
		sinks = append(sinks, publisher)
	}
	log.Named("notification").Info("notification fan-out configured", zap.Int("sinks", len(sinks)))
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Publish(ctx context.Context, fact Fact) {
	for _, sink := range f.sinks {
		sink.Publish(ctx, fact)
	}
}
