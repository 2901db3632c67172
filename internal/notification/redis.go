package notification

import (
	"context"
	"encoding/json"
	"time"

	obsmetrics "github.com/haulbase/haulbase/internal/observability/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is where commission facts are published for external consumers
// (dashboards on other nodes, downstream notifiers).
const Channel = "commission.updated"

const publishTimeout = 2 * time.Second

// RedisPublisher pushes facts onto a Redis pub/sub channel. A nil client
// disables it, so single-node deployments need no Redis at all.
type RedisPublisher struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisPublisher(client *redis.Client, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		log:    log.Named("notification.redis"),
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, fact Fact) {
	if p == nil || p.client == nil {
		return
	}
	payload, err := json.Marshal(fact)
	if err != nil {
		p.log.Warn("marshal commission fact", zap.Error(err))
		obsmetrics.Engine().IncNotificationDropped()
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.client.Publish(publishCtx, Channel, payload).Err(); err != nil {
		p.log.Warn("publish commission fact",
			zap.String("user_id", fact.UserID),
			zap.String("month", fact.Month),
			zap.Error(err),
		)
		obsmetrics.Engine().IncNotificationDropped()
	}
}
