package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/henzogomes/git-shame/internal/core/ports"
)

// Sweeper periodically deletes cache rows idle past the retention threshold.
type Sweeper struct {
	cache     ports.RoastCacheRepository
	retention time.Duration
	interval  time.Duration
	logger    *logrus.Logger
}

func NewSweeper(cache ports.RoastCacheRepository, retention, interval time.Duration, logger *logrus.Logger) *Sweeper {
	return &Sweeper{cache: cache, retention: retention, interval: interval, logger: logger}
}

// Run sweeps on the configured interval until ctx is cancelled. Intended to
// run in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.cache.Sweep(ctx, s.retention)
			if err != nil {
				s.logger.WithError(err).Error("cache sweep failed")
				continue
			}
			if deleted > 0 {
				s.logger.WithField("deleted", deleted).Info("swept stale cache entries")
			}
		}
	}
}
