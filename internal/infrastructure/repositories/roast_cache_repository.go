package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/henzogomes/git-shame/internal/core/domain/roast"
	"github.com/henzogomes/git-shame/internal/core/ports"
	"github.com/henzogomes/git-shame/internal/infrastructure/db"
)

// RoastCacheRepository persists roast cache rows in the shame_cache table.
// The freshness window is fixed at construction; rows older than it are
// invisible to Lookup but stay in place until the retention sweep.
type RoastCacheRepository struct {
	db        *db.Database
	freshness time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

// NewRoastCacheRepository creates a repository with the given freshness
// window.
func NewRoastCacheRepository(database *db.Database, freshness time.Duration, logger *logrus.Logger) ports.RoastCacheRepository {
	return &RoastCacheRepository{
		db:        database,
		freshness: freshness,
		logger:    logger,
		now:       time.Now,
	}
}

const cacheColumns = `id, username, language, llm_model, shame_text, COALESCE(avatar_url, '') AS avatar_url, created_at, last_access`

// Lookup finds a fresh row for the triple and refreshes its last_access.
// An empty model omits the model predicate (legacy rows without a tag).
func (r *RoastCacheRepository) Lookup(ctx context.Context, username, language, model string) (*roast.CacheEntry, error) {
	cutoff := r.now().Add(-r.freshness)

	query := `
		SELECT ` + cacheColumns + `
		FROM shame_cache
		WHERE username = $1 AND language = $2 AND created_at > $3
		ORDER BY created_at DESC
		LIMIT 1`
	args := []interface{}{roast.NormalizeUsername(username), language, cutoff}

	if model != "" {
		query = `
		SELECT ` + cacheColumns + `
		FROM shame_cache
		WHERE username = $1 AND language = $2 AND created_at > $3 AND llm_model = $4
		ORDER BY created_at DESC
		LIMIT 1`
		args = append(args, model)
	}

	var entry roast.CacheEntry
	if err := r.db.DB.GetContext(ctx, &entry, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"username": username, "language": language}).WithError(err).Error("db: roast cache lookup failed")
		}
		return nil, fmt.Errorf("failed to look up roast cache: %w", err)
	}

	// A hit counts as activity for the retention sweep.
	if _, err := r.db.DB.ExecContext(ctx,
		`UPDATE shame_cache SET last_access = $1 WHERE id = $2`, r.now(), entry.ID); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"id": entry.ID}).WithError(err).Warn("db: failed to refresh last_access")
		}
	}

	return &entry, nil
}

// Upsert replaces the row for the exact triple or inserts a new one. The
// stored avatar URL survives unless the entry supplies a new one.
func (r *RoastCacheRepository) Upsert(ctx context.Context, entry *roast.CacheEntry) (*roast.CacheEntry, error) {
	username := roast.NormalizeUsername(entry.Username)
	now := r.now()

	var existingID int64
	err := r.db.DB.GetContext(ctx, &existingID,
		`SELECT id FROM shame_cache WHERE username = $1 AND language = $2 AND llm_model = $3 ORDER BY id LIMIT 1`,
		username, entry.Language, entry.Model)

	switch {
	case err == sql.ErrNoRows:
		var created roast.CacheEntry
		err = r.db.DB.GetContext(ctx, &created, `
			INSERT INTO shame_cache (username, language, llm_model, shame_text, avatar_url, created_at, last_access)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $6)
			RETURNING `+cacheColumns,
			username, entry.Language, entry.Model, entry.Text, entry.AvatarURL, now)
		if err != nil {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"username": username}).WithError(err).Error("db: failed to insert roast cache entry")
			}
			return nil, fmt.Errorf("failed to insert roast cache entry: %w", err)
		}
		return &created, nil

	case err != nil:
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"username": username}).WithError(err).Error("db: roast cache upsert probe failed")
		}
		return nil, fmt.Errorf("failed to upsert roast cache entry: %w", err)
	}

	// Regeneration resets freshness; avatar_url only changes when supplied.
	var updated roast.CacheEntry
	err = r.db.DB.GetContext(ctx, &updated, `
		UPDATE shame_cache
		SET shame_text = $2,
			avatar_url = COALESCE(NULLIF($3, ''), avatar_url),
			created_at = $4,
			last_access = $4
		WHERE id = $1
		RETURNING `+cacheColumns,
		existingID, entry.Text, entry.AvatarURL, now)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"id": existingID}).WithError(err).Error("db: failed to update roast cache entry")
		}
		return nil, fmt.Errorf("failed to update roast cache entry: %w", err)
	}
	return &updated, nil
}

// UsernamesMissingAvatar lists distinct usernames with at least one row
// lacking an avatar URL.
func (r *RoastCacheRepository) UsernamesMissingAvatar(ctx context.Context) ([]string, error) {
	var usernames []string
	err := r.db.DB.SelectContext(ctx, &usernames,
		`SELECT DISTINCT username FROM shame_cache WHERE avatar_url IS NULL OR avatar_url = '' ORDER BY username`)
	if err != nil {
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to list usernames missing avatars")
		}
		return nil, fmt.Errorf("failed to list usernames missing avatars: %w", err)
	}
	return usernames, nil
}

// BackfillAvatar fills the avatar URL on the username's rows that lack one.
func (r *RoastCacheRepository) BackfillAvatar(ctx context.Context, username, avatarURL string) (int, error) {
	result, err := r.db.DB.ExecContext(ctx,
		`UPDATE shame_cache SET avatar_url = $2 WHERE username = $1 AND (avatar_url IS NULL OR avatar_url = '')`,
		roast.NormalizeUsername(username), avatarURL)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"username": username}).WithError(err).Error("db: failed to backfill avatar")
		}
		return 0, fmt.Errorf("failed to backfill avatar for %s: %w", username, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count backfilled rows: %w", err)
	}
	return int(affected), nil
}

// Sweep deletes rows idle past the retention threshold.
func (r *RoastCacheRepository) Sweep(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := r.now().Add(-retention)
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM shame_cache WHERE last_access < $1`, cutoff)
	if err != nil {
		if r.logger != nil {
			r.logger.WithError(err).Error("db: roast cache sweep failed")
		}
		return 0, fmt.Errorf("failed to sweep roast cache: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept rows: %w", err)
	}
	return int(affected), nil
}

// ListAll returns every row for the report view, newest activity first.
func (r *RoastCacheRepository) ListAll(ctx context.Context) ([]*roast.CacheEntry, error) {
	var entries []*roast.CacheEntry
	err := r.db.DB.SelectContext(ctx, &entries,
		`SELECT `+cacheColumns+` FROM shame_cache ORDER BY last_access DESC`)
	if err != nil {
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to list roast cache entries")
		}
		return nil, fmt.Errorf("failed to list roast cache entries: %w", err)
	}
	return entries, nil
}
