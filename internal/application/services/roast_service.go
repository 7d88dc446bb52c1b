package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/henzogomes/git-shame/internal/core/domain/github"
	"github.com/henzogomes/git-shame/internal/core/domain/i18n"
	"github.com/henzogomes/git-shame/internal/core/domain/roast"
	"github.com/henzogomes/git-shame/internal/core/ports"
)

// RoastService orchestrates one roast request: rate check, cache lookup,
// profile fetch, generation and delivery, cache write-back. One pipeline
// serves both delivery modes; they diverge only at the generation step.
type RoastService struct {
	cache     ports.RoastCacheRepository
	limiter   ports.RateLimiter
	fetcher   ports.ProfileFetcher
	generator ports.RoastGenerator

	model        string
	cacheEnabled bool
	logger       *logrus.Logger
}

// RoastServiceConfig groups the orchestrator's behavioral switches.
type RoastServiceConfig struct {
	Model        string
	CacheEnabled bool
}

func NewRoastService(
	cache ports.RoastCacheRepository,
	limiter ports.RateLimiter,
	fetcher ports.ProfileFetcher,
	generator ports.RoastGenerator,
	cfg *RoastServiceConfig,
	logger *logrus.Logger,
) *RoastService {
	model := "gpt-3.5-turbo"
	cacheEnabled := true
	if cfg != nil {
		if cfg.Model != "" {
			model = cfg.Model
		}
		cacheEnabled = cfg.CacheEnabled
	}
	return &RoastService{
		cache:        cache,
		limiter:      limiter,
		fetcher:      fetcher,
		generator:    generator,
		model:        model,
		cacheEnabled: cacheEnabled,
		logger:       logger,
	}
}

// Model returns the effective generation model identifier.
func (s *RoastService) Model() string { return s.model }

// Roast drives the request through its states. In streamed mode sink must be
// non-nil; a cache hit never touches the sink and is answered buffered.
// Returned errors map onto the transport taxonomy: *roast.RateLimitError,
// roast.ErrUsernameRequired, roast.ErrUserNotFound, anything else upstream.
func (s *RoastService) Roast(ctx context.Context, req *roast.Request, sink ports.StreamSink) (*roast.Result, error) {
	// RATE_CHECK comes first: even malformed requests consume window units.
	allowed, err := s.limiter.Allow(ctx, req.ClientIP)
	if err != nil {
		// Limiter infrastructure trouble fails open.
		s.logger.WithField("client_ip", req.ClientIP).WithError(err).Warn("rate limiter error; admitting request")
	} else if !allowed {
		resetSeconds, rsErr := s.limiter.ResetSeconds(ctx, req.ClientIP)
		if rsErr != nil {
			s.logger.WithField("client_ip", req.ClientIP).WithError(rsErr).Warn("failed to read rate limit reset")
		}
		return nil, &roast.RateLimitError{ResetSeconds: resetSeconds}
	}

	if req.Username == "" {
		return nil, roast.ErrUsernameRequired
	}

	// CACHE_LOOKUP. Read errors are a miss, never fatal.
	if s.cacheEnabled {
		entry, err := s.cache.Lookup(ctx, req.Username, string(req.Language), s.model)
		if err != nil {
			s.logger.WithFields(logrus.Fields{"username": req.Username, "language": req.Language}).WithError(err).Warn("cache lookup failed; regenerating")
		}
		if entry != nil {
			s.logger.WithFields(logrus.Fields{"username": req.Username, "language": req.Language, "model": entry.Model}).Debug("roast served from cache")
			return &roast.Result{
				Text:      entry.Text,
				Language:  req.Language,
				Model:     entry.Model,
				AvatarURL: entry.AvatarURL,
				FromCache: true,
			}, nil
		}
	}

	// FETCH_PROFILE.
	profile, err := s.fetcher.FetchProfile(ctx, req.Username)
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			return nil, roast.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch github profile: %w", err)
	}

	strings := i18n.Get(req.Language)
	prompt := ports.Prompt{
		System: strings.SystemPrompt,
		User:   "Roast this GitHub profile in a funny way: " + profile.PromptJSON(),
	}

	// GENERATE and RESPOND_AND_CACHE.
	if req.Mode == roast.DeliveryStreamed {
		return s.generateStreamed(ctx, req, profile, prompt, strings.FallbackText, sink)
	}
	return s.generateBuffered(ctx, req, profile, prompt, strings.FallbackText)
}

func (s *RoastService) generateBuffered(ctx context.Context, req *roast.Request, profile *github.Profile, prompt ports.Prompt, fallback string) (*roast.Result, error) {
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("roast generation failed: %w", err)
	}
	if text == "" {
		text = fallback
	}

	s.writeCache(ctx, req, profile, text)

	return &roast.Result{
		Text:      text,
		Language:  req.Language,
		Model:     s.model,
		AvatarURL: profile.AvatarURL,
		FromCache: false,
	}, nil
}

func (s *RoastService) generateStreamed(ctx context.Context, req *roast.Request, profile *github.Profile, prompt ports.Prompt, fallback string, sink ports.StreamSink) (*roast.Result, error) {
	if sink == nil {
		return nil, errors.New("streamed delivery requires a sink")
	}

	first := true
	text, err := s.generator.GenerateStream(ctx, prompt, func(delta string) error {
		chunk := roast.StreamChunk{Text: delta}
		if first {
			chunk.AvatarURL = profile.AvatarURL
			first = false
		}
		return sink.Send(chunk)
	})
	if err != nil {
		// No terminal marker is sent; the broken stream tells the client
		// the response is incomplete, and nothing is cached.
		return nil, fmt.Errorf("roast stream failed: %w", err)
	}

	if text == "" {
		text = fallback
		if err := sink.Send(roast.StreamChunk{Text: text, AvatarURL: profile.AvatarURL}); err != nil {
			return nil, fmt.Errorf("failed to deliver fallback: %w", err)
		}
	}
	if err := sink.Done(); err != nil {
		return nil, fmt.Errorf("failed to terminate stream: %w", err)
	}

	// The stream is complete; the write must not be lost to a client
	// disconnect racing the terminal marker.
	s.writeCache(context.WithoutCancel(ctx), req, profile, text)

	return &roast.Result{
		Text:      text,
		Language:  req.Language,
		Model:     s.model,
		AvatarURL: profile.AvatarURL,
		FromCache: false,
		Streamed:  true,
	}, nil
}

// writeCache persists a generated roast. Failures are logged only; the
// response already computed (or already streamed) is never affected.
func (s *RoastService) writeCache(ctx context.Context, req *roast.Request, profile *github.Profile, text string) {
	if !s.cacheEnabled {
		return
	}
	_, err := s.cache.Upsert(ctx, &roast.CacheEntry{
		Username:  roast.NormalizeUsername(req.Username),
		Language:  string(req.Language),
		Model:     s.model,
		Text:      text,
		AvatarURL: profile.AvatarURL,
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{"username": req.Username, "language": req.Language}).WithError(err).Error("failed to cache roast")
	}
}
