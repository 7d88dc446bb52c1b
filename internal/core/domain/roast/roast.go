package roast

import (
	"strings"
	"time"

	"github.com/henzogomes/git-shame/internal/core/domain/i18n"
)

// CacheEntry is one row of the server-side roast cache. At most one live row
// is intended per (username, language, model) triple, but the schema does not
// enforce it; concurrent misses may leave duplicates (last write wins).
type CacheEntry struct {
	ID         int64     `json:"id" db:"id"`
	Username   string    `json:"username" db:"username"`
	Language   string    `json:"language" db:"language"`
	Model      string    `json:"model" db:"llm_model"`
	Text       string    `json:"shame" db:"shame_text"`
	AvatarURL  string    `json:"avatarUrl,omitempty" db:"avatar_url"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	LastAccess time.Time `json:"lastAccess" db:"last_access"`
}

// Fresh reports whether the entry may still satisfy a lookup at the given
// time. Freshness anchors on CreatedAt, not LastAccess.
func (e *CacheEntry) Fresh(now time.Time, window time.Duration) bool {
	return now.Sub(e.CreatedAt) < window
}

// NormalizeUsername lowercases a username for use as a cache key component.
// GitHub usernames are case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// DeliveryMode selects how a freshly generated roast reaches the client.
type DeliveryMode int

const (
	// DeliveryBuffered waits for the complete text and answers with JSON.
	DeliveryBuffered DeliveryMode = iota
	// DeliveryStreamed forwards each generated token as an SSE frame.
	DeliveryStreamed
)

// Request carries the resolved inputs of one roast request into the
// orchestrator. Username keeps its original casing for the GitHub lookup;
// the cache key uses the normalized form.
type Request struct {
	Username string
	Language i18n.Language
	ClientIP string
	Mode     DeliveryMode
}

// Result is the terminal state of a successfully handled request. When
// Streamed is true the response has already been written frame by frame and
// Text holds the reassembled body.
type Result struct {
	Text      string
	Language  i18n.Language
	Model     string
	AvatarURL string
	FromCache bool
	Streamed  bool
}

// StreamChunk is one SSE frame payload. The avatar URL rides on the first
// non-empty frame only.
type StreamChunk struct {
	Text      string `json:"text"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// AvatarBackfillUpdate reports one username processed by the avatar refresh.
type AvatarBackfillUpdate struct {
	Username     string `json:"username"`
	UpdatedCount int    `json:"updatedCount"`
	AvatarURL    string `json:"avatarUrl"`
}

// AvatarBackfillReport summarizes a full avatar refresh run.
type AvatarBackfillReport struct {
	RunID               string                 `json:"runId"`
	UniqueUsersUpdated  int                    `json:"uniqueUsersUpdated"`
	TotalRecordsUpdated int                    `json:"totalRecordsUpdated"`
	Updates             []AvatarBackfillUpdate `json:"updates"`
}
