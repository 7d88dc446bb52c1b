// Package client is a Go consumer for the git-shame API. It mirrors the
// server's cache locally so repeat lookups skip the network entirely, and
// replays cached text through a simulated typing renderer so cached and
// freshly streamed results feel the same.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultCacheCapacity = 50
	defaultFreshness     = 24 * time.Hour
)

// Config configures a Client. BaseURL is required.
type Config struct {
	BaseURL string
	// Model must match the server's configured generation model for local
	// cache keys to line up with server-side ones.
	Model         string
	HTTPClient    *http.Client
	CacheCapacity int
	Freshness     time.Duration
}

// Client calls the roast endpoint with a local mirror cache in front.
type Client struct {
	baseURL    string
	model      string
	http       *http.Client
	cache      *MirrorCache
	typewriter *Typewriter
}

// Result is the outcome of one roast request.
type Result struct {
	Text      string
	Language  string
	Model     string
	AvatarURL string
	// FromCache reports a hit in either the local mirror or the server
	// cache.
	FromCache bool
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode     int
	Message        string
	ResetInSeconds int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// New creates a Client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	capacity := cfg.CacheCapacity
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	freshness := cfg.Freshness
	if freshness <= 0 {
		freshness = defaultFreshness
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		http:       httpClient,
		cache:      NewMirrorCache(capacity, freshness),
		typewriter: NewTypewriter(),
	}
}

// Cache exposes the mirror cache, mainly for inspection in tests.
func (c *Client) Cache() *MirrorCache { return c.cache }

type roastResponse struct {
	Shame     string `json:"shame"`
	Language  string `json:"language"`
	Model     string `json:"model"`
	FromCache bool   `json:"fromCache"`
	AvatarURL string `json:"avatarUrl"`
}

type apiErrorResponse struct {
	Error          string `json:"error"`
	ResetInSeconds int    `json:"resetInSeconds"`
}

// Roast fetches a roast for username in the given language, invoking
// onUpdate with the accumulated text as it arrives (or as the renderer
// replays it). A fresh local cache hit never contacts the server.
func (c *Client) Roast(ctx context.Context, username, language string, onUpdate func(accumulated string)) (*Result, error) {
	if entry := c.cache.Lookup(username, language, c.model); entry != nil {
		if err := c.typewriter.Render(ctx, entry.Result, onUpdate); err != nil {
			return nil, err
		}
		return &Result{
			Text:      entry.Result,
			Language:  entry.Language,
			Model:     entry.Model,
			AvatarURL: entry.AvatarURL,
			FromCache: true,
		}, nil
	}

	endpoint := fmt.Sprintf("%s/roast?username=%s&lang=%s",
		c.baseURL, url.QueryEscape(username), url.QueryEscape(language))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, &APIError{
			StatusCode:     resp.StatusCode,
			Message:        apiErr.Error,
			ResetInSeconds: apiErr.ResetInSeconds,
		}
	}

	var result *Result
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		result, err = c.consumeStream(resp, language, onUpdate)
	} else {
		result, err = c.consumeJSON(ctx, resp, onUpdate)
	}
	if err != nil {
		return nil, err
	}

	c.cache.Add(MirrorEntry{
		Username:  username,
		Language:  result.Language,
		Model:     result.Model,
		Result:    result.Text,
		AvatarURL: result.AvatarURL,
	})
	return result, nil
}

// consumeStream reassembles an SSE response frame by frame.
func (c *Client) consumeStream(resp *http.Response, language string, onUpdate func(string)) (*Result, error) {
	var accumulated strings.Builder
	text, avatarURL, err := ReadStream(resp.Body, func(f Frame) error {
		accumulated.WriteString(f.Text)
		if onUpdate != nil {
			onUpdate(accumulated.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Frames carry no language/model; the request language and configured
	// model identify the triple.
	return &Result{
		Text:      text,
		Language:  language,
		Model:     c.model,
		AvatarURL: avatarURL,
	}, nil
}

// consumeJSON parses a buffered response and replays it through the
// renderer so the pacing matches a live stream.
func (c *Client) consumeJSON(ctx context.Context, resp *http.Response, onUpdate func(string)) (*Result, error) {
	var body roastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if err := c.typewriter.Render(ctx, body.Shame, onUpdate); err != nil {
		return nil, err
	}
	return &Result{
		Text:      body.Shame,
		Language:  body.Language,
		Model:     body.Model,
		AvatarURL: body.AvatarURL,
		FromCache: body.FromCache,
	}, nil
}
