package store

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner is the store capability the worker needs.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Worker purges expired session-scoped entries periodically.
type Worker struct {
	store    Cleaner
	logger   *slog.Logger
	interval time.Duration
}

// NewWorker creates a cleanup worker.
func NewWorker(store Cleaner, logger *slog.Logger, interval time.Duration) *Worker {
	return &Worker{
		store:    store,
		logger:   logger,
		interval: interval,
	}
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("session cleanup worker started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("session cleanup worker stopped")
			return
		case <-ticker.C:
			removed, err := w.store.CleanupExpired(ctx)
			if err != nil {
				w.logger.Error("failed to cleanup expired session state", "error", err)
				continue
			}
			if removed > 0 {
				w.logger.Debug("expired session state removed", "entries", removed)
			}
		}
	}
}
