// Package notify carries the "data changed for key K" broadcast emitted
// after every analytics mutation. Delivery is best-effort with no ordering
// guarantee; listeners re-read the stored state rather than trusting the
// notification payload.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Notifier announces that the value under a storage key has changed.
type Notifier interface {
	DataChanged(ctx context.Context, key string)
}

// Log is the fallback notifier for single-instance deployments: it only
// records the change in the service log.
type Log struct {
	logger *zap.SugaredLogger
}

// NewLog creates a log-only notifier.
func NewLog(logger *zap.SugaredLogger) *Log {
	return &Log{logger: logger}
}

func (n *Log) DataChanged(_ context.Context, key string) {
	n.logger.Debugw("Data changed", "key", key)
}
