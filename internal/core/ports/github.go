package ports

import (
	"context"

	"github.com/henzogomes/git-shame/internal/core/domain/github"
)

// ProfileFetcher retrieves public GitHub profile data.
// FetchProfile returns github.ErrNotFound (possibly wrapped) for unknown
// users; any other failure is an upstream error.
type ProfileFetcher interface {
	// FetchProfile loads the user's profile plus their most recently
	// updated repositories.
	FetchProfile(ctx context.Context, username string) (*github.Profile, error)
	// FetchAvatarURL loads just the avatar URL. Used by the backfill job.
	FetchAvatarURL(ctx context.Context, username string) (string, error)
}
