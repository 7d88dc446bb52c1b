package services_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	impl "github.com/henzogomes/git-shame/internal/application/services"
	"github.com/henzogomes/git-shame/internal/core/domain/github"
	"github.com/henzogomes/git-shame/internal/core/domain/i18n"
	"github.com/henzogomes/git-shame/internal/core/domain/roast"
	"github.com/henzogomes/git-shame/internal/core/ports"
)

type cacheMock struct {
	lookupFn func(ctx context.Context, username, language, model string) (*roast.CacheEntry, error)
	upsertFn func(ctx context.Context, entry *roast.CacheEntry) (*roast.CacheEntry, error)
}

func (m *cacheMock) Lookup(ctx context.Context, username, language, model string) (*roast.CacheEntry, error) {
	if m.lookupFn != nil {
		return m.lookupFn(ctx, username, language, model)
	}
	return nil, nil
}
func (m *cacheMock) Upsert(ctx context.Context, entry *roast.CacheEntry) (*roast.CacheEntry, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, entry)
	}
	return entry, nil
}
func (m *cacheMock) UsernamesMissingAvatar(ctx context.Context) ([]string, error) { return nil, nil }
func (m *cacheMock) BackfillAvatar(ctx context.Context, username, avatarURL string) (int, error) {
	return 0, nil
}
func (m *cacheMock) Sweep(ctx context.Context, retention time.Duration) (int, error) { return 0, nil }
func (m *cacheMock) ListAll(ctx context.Context) ([]*roast.CacheEntry, error)       { return nil, nil }

type limiterMock struct {
	allowFn func(ctx context.Context, id string) (bool, error)
	resetFn func(ctx context.Context, id string) (int, error)
}

func (m *limiterMock) Allow(ctx context.Context, id string) (bool, error) {
	if m.allowFn != nil {
		return m.allowFn(ctx, id)
	}
	return true, nil
}
func (m *limiterMock) ResetSeconds(ctx context.Context, id string) (int, error) {
	if m.resetFn != nil {
		return m.resetFn(ctx, id)
	}
	return 0, nil
}

type fetcherMock struct {
	fetchProfileFn func(ctx context.Context, username string) (*github.Profile, error)
}

func (m *fetcherMock) FetchProfile(ctx context.Context, username string) (*github.Profile, error) {
	if m.fetchProfileFn != nil {
		return m.fetchProfileFn(ctx, username)
	}
	return &github.Profile{Username: username}, nil
}
func (m *fetcherMock) FetchAvatarURL(ctx context.Context, username string) (string, error) {
	return "", nil
}

type generatorMock struct {
	generateFn       func(ctx context.Context, prompt ports.Prompt) (string, error)
	generateStreamFn func(ctx context.Context, prompt ports.Prompt, onDelta func(string) error) (string, error)
}

func (m *generatorMock) Generate(ctx context.Context, prompt ports.Prompt) (string, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, prompt)
	}
	return "generated roast", nil
}
func (m *generatorMock) GenerateStream(ctx context.Context, prompt ports.Prompt, onDelta func(string) error) (string, error) {
	if m.generateStreamFn != nil {
		return m.generateStreamFn(ctx, prompt, onDelta)
	}
	return "", nil
}

type sinkMock struct {
	chunks []roast.StreamChunk
	done   bool
}

func (m *sinkMock) Send(chunk roast.StreamChunk) error {
	m.chunks = append(m.chunks, chunk)
	return nil
}
func (m *sinkMock) Done() error {
	m.done = true
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newService(cache ports.RoastCacheRepository, limiter ports.RateLimiter, fetcher ports.ProfileFetcher, generator ports.RoastGenerator) *impl.RoastService {
	return impl.NewRoastService(cache, limiter, fetcher, generator,
		&impl.RoastServiceConfig{Model: "gpt-3.5-turbo", CacheEnabled: true}, quietLogger())
}

func TestRoast_CacheHit(t *testing.T) {
	cache := &cacheMock{lookupFn: func(ctx context.Context, username, language, model string) (*roast.CacheEntry, error) {
		if username != "octocat" || language != "en-US" || model != "gpt-3.5-turbo" {
			t.Fatalf("unexpected lookup key: %s/%s/%s", username, language, model)
		}
		return &roast.CacheEntry{Username: "octocat", Language: "en-US", Model: "gpt-3.5-turbo", Text: "cached roast", AvatarURL: "https://a/octocat.png"}, nil
	}}
	fetcher := &fetcherMock{fetchProfileFn: func(ctx context.Context, username string) (*github.Profile, error) {
		t.Fatalf("profile fetch must not run on a cache hit")
		return nil, nil
	}}
	generator := &generatorMock{generateFn: func(ctx context.Context, prompt ports.Prompt) (string, error) {
		t.Fatalf("generation must not run on a cache hit")
		return "", nil
	}}

	svc := newService(cache, &limiterMock{}, fetcher, generator)
	res, err := svc.Roast(context.Background(), &roast.Request{Username: "octocat", Language: i18n.EnglishUS, ClientIP: "1.2.3.4"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.FromCache || res.Text != "cached roast" || res.AvatarURL != "https://a/octocat.png" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRoast_RateLimited(t *testing.T) {
	limiter := &limiterMock{
		allowFn: func(ctx context.Context, id string) (bool, error) { return false, nil },
		resetFn: func(ctx context.Context, id string) (int, error) { return 42, nil },
	}
	cache := &cacheMock{lookupFn: func(ctx context.Context, username, language, model string) (*roast.CacheEntry, error) {
		t.Fatalf("cache must not be consulted for a rejected request")
		return nil, nil
	}}

	svc := newService(cache, limiter, &fetcherMock{}, &generatorMock{})
	_, err := svc.Roast(context.Background(), &roast.Request{Username: "octocat", Language: i18n.EnglishUS, ClientIP: "1.2.3.4"}, nil)

	var rlErr *roast.RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rlErr.ResetSeconds != 42 {
		t.Fatalf("expected reset 42, got %d", rlErr.ResetSeconds)
	}
}

func TestRoast_RateCheckPrecedesValidation(t *testing.T) {
	limiter := &limiterMock{allowFn: func(ctx context.Context, id string) (bool, error) { return false, nil }}
	svc := newService(&cacheMock{}, limiter, &fetcherMock{}, &generatorMock{})

	_, err := svc.Roast(context.Background(), &roast.Request{Username: "", ClientIP: "1.2.3.4"}, nil)
	var rlErr *roast.RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected RateLimitError for limited empty-username request, got %v", err)
	}
}

func TestRoast_UsernameRequired(t *testing.T) {
	svc := newService(&cacheMock{}, &limiterMock{}, &fetcherMock{}, &generatorMock{})
	_, err := svc.Roast(context.Background(), &roast.Request{Username: "", ClientIP: "1.2.3.4"}, nil)
	if !errors.Is(err, roast.ErrUsernameRequired) {
		t.Fatalf("expected ErrUsernameRequired, got %v", err)
	}
}

func TestRoast_UserNotFound(t *testing.T) {
	fetcher := &fetcherMock{fetchProfileFn: func(ctx context.Context, username string) (*github.Profile, error) {
		return nil, fmt.Errorf("GET /users/ghost: %w", github.ErrNotFound)
	}}
	svc := newService(&cacheMock{}, &limiterMock{}, fetcher, &generatorMock{})
	_, err := svc.Roast(context.Background(), &roast.Request{Username: "ghost", Language: i18n.EnglishUS, ClientIP: "1.2.3.4"}, nil)
	if !errors.Is(err, roast.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRoast_CacheLookupErrorFailsOpen(t *testing.T) {
	cache := &cacheMock{lookupFn: func(ctx context.Context, username, language, model string) (*roast.CacheEntry, error) {
		return nil, errors.New("connection refused")
	}}
	svc := newService(cache, &limiterMock{}, &fetcherMock{}, &generatorMock{})
	res, err := svc.Roast(context.Background(), &roast.Request{Username: "octocat", Language: i18n.EnglishUS, ClientIP: "1.2.3.4"}, nil)
	if err != nil {
		t.Fatalf("lookup failure must not fail the request: %v", err)
	}
	if res.FromCache || res.Text != "generated roast" {
		t.Fatalf("expected freshly generated result, got %+v", res)
	}
}

func TestRoast_BufferedFallbackOnEmptyGeneration(t *testing.T) {
	var cached *roast.CacheEntry
	cache := &cacheMock{upsertFn: func(ctx context.Context, entry *roast.CacheEntry) (*roast.CacheEntry, error) {
		cached = entry
		return entry, nil
	}}
	generator := &generatorMock{generateFn: func(ctx context.Context, prompt ports.Prompt) (string, error) {
		return "", nil
	}}

	svc := newService(cache, &limiterMock{}, &fetcherMock{}, generator)
	res, err := svc.Roast(context.Background(), &roast.Request{Username: "Octocat", Language: i18n.EnglishUS, ClientIP: "1.2.3.4"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fallback := i18n.Get(i18n.EnglishUS).FallbackText
	if res.Text != fallback {
		t.Fatalf("expected fallback text, got %q", res.Text)
	}
	if cached == nil || cached.Text != fallback {
		t.Fatalf("fallback must be cached, got %+v", cached)
	}
	if cached.Username != "octocat" {
		t.Fatalf("cache key must be normalized, got %q", cached.Username)
	}
}

func TestRoast_CacheWriteFailureNonFatal(t *testing.T) {
	cache := &cacheMock{upsertFn: func(ctx context.Context, entry *roast.CacheEntry) (*roast.CacheEntry, error) {
		return nil, errors.New("disk full")
	}}
	svc := newService(cache, &limiterMock{}, &fetcherMock{}, &generatorMock{})
	res, err := svc.Roast(context.Background(), &roast.Request{Username: "octocat", Language: i18n.EnglishUS, ClientIP: "1.2.3.4"}, nil)
	if err != nil {
		t.Fatalf("cache write failure must not fail the request: %v", err)
	}
	if res.Text != "generated roast" {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestRoast_StreamedDelivery(t *testing.T) {
	var cached *roast.CacheEntry
	cache := &cacheMock{upsertFn: func(ctx context.Context, entry *roast.CacheEntry) (*roast.CacheEntry, error) {
		cached = entry
		return entry, nil
	}}
	fetcher := &fetcherMock{fetchProfileFn: func(ctx context.Context, username string) (*github.Profile, error) {
		return &github.Profile{Username: username, AvatarURL: "https://a/octocat.png"}, nil
	}}
	generator := &generatorMock{generateStreamFn: func(ctx context.Context, prompt ports.Prompt, onDelta func(string) error) (string, error) {
		for _, delta := range []string{"Hello ", "world", "!"} {
			if err := onDelta(delta); err != nil {
				return "", err
			}
		}
		return "Hello world!", nil
	}}
	sink := &sinkMock{}

	svc := newService(cache, &limiterMock{}, fetcher, generator)
	res, err := svc.Roast(context.Background(), &roast.Request{Username: "octocat", Language: i18n.EnglishUS, ClientIP: "1.2.3.4", Mode: roast.DeliveryStreamed}, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Streamed || res.Text != "Hello world!" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(sink.chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(sink.chunks))
	}
	if sink.chunks[0].AvatarURL != "https://a/octocat.png" {
		t.Fatalf("avatar must ride the first chunk, got %+v", sink.chunks[0])
	}
	if sink.chunks[1].AvatarURL != "" || sink.chunks[2].AvatarURL != "" {
		t.Fatalf("avatar must ride only the first chunk")
	}
	if !sink.done {
		t.Fatalf("terminal marker not sent")
	}
	if cached == nil || cached.Text != "Hello world!" {
		t.Fatalf("reassembled text must be cached, got %+v", cached)
	}
}

func TestRoast_StreamedGeneratorError(t *testing.T) {
	upserts := 0
	cache := &cacheMock{upsertFn: func(ctx context.Context, entry *roast.CacheEntry) (*roast.CacheEntry, error) {
		upserts++
		return entry, nil
	}}
	generator := &generatorMock{generateStreamFn: func(ctx context.Context, prompt ports.Prompt, onDelta func(string) error) (string, error) {
		_ = onDelta("partial ")
		return "partial ", errors.New("upstream reset")
	}}
	sink := &sinkMock{}

	svc := newService(cache, &limiterMock{}, &fetcherMock{}, generator)
	_, err := svc.Roast(context.Background(), &roast.Request{Username: "octocat", Language: i18n.EnglishUS, ClientIP: "1.2.3.4", Mode: roast.DeliveryStreamed}, sink)
	if err == nil {
		t.Fatalf("expected stream failure to surface")
	}
	if sink.done {
		t.Fatalf("a broken stream must not send the terminal marker")
	}
	if upserts != 0 {
		t.Fatalf("a broken stream must not be cached")
	}
}

func TestRoast_CacheDisabled(t *testing.T) {
	cache := &cacheMock{
		lookupFn: func(ctx context.Context, username, language, model string) (*roast.CacheEntry, error) {
			t.Fatalf("lookup must not run with caching disabled")
			return nil, nil
		},
		upsertFn: func(ctx context.Context, entry *roast.CacheEntry) (*roast.CacheEntry, error) {
			t.Fatalf("upsert must not run with caching disabled")
			return nil, nil
		},
	}
	svc := impl.NewRoastService(cache, &limiterMock{}, &fetcherMock{}, &generatorMock{},
		&impl.RoastServiceConfig{Model: "gpt-3.5-turbo", CacheEnabled: false}, quietLogger())
	res, err := svc.Roast(context.Background(), &roast.Request{Username: "octocat", Language: i18n.EnglishUS, ClientIP: "1.2.3.4"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FromCache {
		t.Fatalf("result cannot come from a disabled cache")
	}
}
