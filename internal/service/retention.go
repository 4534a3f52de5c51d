package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger deletes notifications older than a given age
type Purger interface {
	PurgeOlderThan(maxAge time.Duration) (int64, error)
}

// RunRetention sweeps old notifications every interval until ctx is done
func RunRetention(ctx context.Context, p Purger, maxAge, interval time.Duration, log *zap.Logger) {
	log = log.Named("retention")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep := func() {
		n, err := p.PurgeOlderThan(maxAge)
		if err != nil {
			log.Error("notification sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			log.Info("🧹 Purged old notifications", zap.Int64("count", n))
		}
	}

	sweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
