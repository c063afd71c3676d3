package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/reconhq/recon-server/internal/analytics"
)

// RetentionWorker periodically prunes analytics buckets past the retention
// window so the persisted blob does not grow without bound.
type RetentionWorker struct {
	engine        *analytics.Engine
	retentionDays int
	logger        *zap.SugaredLogger
}

// NewRetentionWorker creates a new background retention worker
func NewRetentionWorker(engine *analytics.Engine, retentionDays int, logger *zap.SugaredLogger) *RetentionWorker {
	return &RetentionWorker{engine: engine, retentionDays: retentionDays, logger: logger}
}

// Start begins the periodic pruning loop
func (w *RetentionWorker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial pass
	w.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Retention worker stopped")
			return
		case <-ticker.C:
			w.prune(ctx)
		}
	}
}

func (w *RetentionWorker) prune(ctx context.Context) {
	removed, err := w.engine.Prune(ctx, w.retentionDays)
	if err != nil {
		w.logger.Warnw("Analytics pruning failed", "error", err)
		return
	}
	if removed > 0 {
		w.logger.Infow("Analytics pruned",
			"buckets_removed", removed,
			"retention_days", w.retentionDays,
		)
	}
}
