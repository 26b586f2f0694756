package pipeline

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"tourcatalog/internal/logging"
)

// Schedule runs a refresh immediately and then every interval until ctx is
// done. Each run gets its own timeout.
func (r *Refresher) Schedule(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.runOnce(ctx, timeout)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Refresher) runOnce(ctx context.Context, timeout time.Duration) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := r.Run(runCtx); errors.Is(err, ErrRefreshInProgress) {
		logging.Info("scheduled refresh skipped, another run is active")
	} else if err != nil {
		logging.Warn("scheduled refresh failed", zap.Error(err))
	}
}
