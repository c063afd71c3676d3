package notify

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is the pub/sub channel data-changed notifications are published
// on. Subscribers receive the storage key that changed.
const Channel = "recon:data-changed"

// Redis publishes change notifications over Redis pub/sub so other service
// instances and live dashboards can refresh their snapshots. Publish
// failures are logged and dropped; the write that triggered the
// notification has already been persisted.
type Redis struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

// NewRedis creates a Redis-backed notifier.
func NewRedis(client *redis.Client, logger *zap.SugaredLogger) *Redis {
	return &Redis{client: client, logger: logger}
}

func (n *Redis) DataChanged(ctx context.Context, key string) {
	if err := n.client.Publish(ctx, Channel, key).Err(); err != nil {
		n.logger.Warnw("Failed to publish data-changed notification",
			"key", key,
			"error", err,
		)
	}
}
