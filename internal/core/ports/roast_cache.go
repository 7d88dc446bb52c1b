package ports

import (
	"context"
	"time"

	"github.com/henzogomes/git-shame/internal/core/domain/roast"
)

// RoastCacheRepository is the persistent roast cache keyed by the
// (username, language, model) triple.
//
// Lookup returns (nil, nil) on a miss. A hit refreshes last_access. Passing
// an empty model enables the legacy loose match that ignores the model tag;
// a non-empty model matches strictly.
//
// Upsert replaces the text of an existing row for the exact triple and
// resets created_at/last_access; the stored avatar URL is preserved unless
// the entry supplies a new one. Upsert errors must surface to the caller.
type RoastCacheRepository interface {
	Lookup(ctx context.Context, username string, language, model string) (*roast.CacheEntry, error)
	Upsert(ctx context.Context, entry *roast.CacheEntry) (*roast.CacheEntry, error)

	// UsernamesMissingAvatar lists distinct usernames having at least one
	// row without an avatar URL.
	UsernamesMissingAvatar(ctx context.Context) ([]string, error)
	// BackfillAvatar sets the avatar URL on all of the username's rows that
	// lack one, without touching text or timestamps. Returns rows updated.
	BackfillAvatar(ctx context.Context, username, avatarURL string) (int, error)

	// Sweep deletes rows whose last_access is older than retention.
	Sweep(ctx context.Context, retention time.Duration) (int, error)
	// ListAll returns every row, newest last_access first. Report view only.
	ListAll(ctx context.Context) ([]*roast.CacheEntry, error)
}
