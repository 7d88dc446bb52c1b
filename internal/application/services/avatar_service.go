package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/henzogomes/git-shame/internal/core/domain/roast"
	"github.com/henzogomes/git-shame/internal/core/ports"
)

// AvatarService backfills avatar URLs for cached roasts whose rows predate
// avatar capture. Runs out of band, triggered by the admin endpoint.
type AvatarService struct {
	cache   ports.RoastCacheRepository
	fetcher ports.ProfileFetcher
	logger  *logrus.Logger
}

func NewAvatarService(cache ports.RoastCacheRepository, fetcher ports.ProfileFetcher, logger *logrus.Logger) *AvatarService {
	return &AvatarService{cache: cache, fetcher: fetcher, logger: logger}
}

// RefreshMissing re-fetches the avatar of every username that has rows
// without one and bulk-updates those rows. A failure on one username is
// logged and skipped; the run continues.
func (s *AvatarService) RefreshMissing(ctx context.Context) (*roast.AvatarBackfillReport, error) {
	runID := uuid.New().String()
	log := s.logger.WithField("run_id", runID)

	usernames, err := s.cache.UsernamesMissingAvatar(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list usernames for backfill: %w", err)
	}

	report := &roast.AvatarBackfillReport{
		RunID:              runID,
		UniqueUsersUpdated: len(usernames),
		Updates:            []roast.AvatarBackfillUpdate{},
	}

	for _, username := range usernames {
		avatarURL, err := s.fetcher.FetchAvatarURL(ctx, username)
		if err != nil {
			log.WithField("username", username).WithError(err).Warn("avatar fetch failed; skipping user")
			continue
		}
		if avatarURL == "" {
			log.WithField("username", username).Warn("no avatar url for user; skipping")
			continue
		}

		updated, err := s.cache.BackfillAvatar(ctx, username, avatarURL)
		if err != nil {
			log.WithField("username", username).WithError(err).Warn("avatar backfill failed; skipping user")
			continue
		}

		report.TotalRecordsUpdated += updated
		report.Updates = append(report.Updates, roast.AvatarBackfillUpdate{
			Username:     username,
			UpdatedCount: updated,
			AvatarURL:    avatarURL,
		})
	}

	log.WithFields(logrus.Fields{
		"unique_users":  report.UniqueUsersUpdated,
		"total_updated": report.TotalRecordsUpdated,
	}).Info("avatar backfill completed")

	return report, nil
}
