package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/henzogomes/git-shame/configs"
	domain "github.com/henzogomes/git-shame/internal/core/domain/github"
	"github.com/henzogomes/git-shame/internal/core/ports"
)

// Client fetches public profile data from the GitHub REST API.
type Client struct {
	http      *http.Client
	baseURL   string
	token     string
	userAgent string
	topRepos  int
	logger    *logrus.Logger
}

// NewClient creates a GitHub client with retries and the configured timeout.
func NewClient(cfg *configs.GitHubConfig, logger *logrus.Logger) ports.ProfileFetcher {
	r := retryablehttp.NewClient()
	r.RetryMax = 2
	r.HTTPClient.Timeout = cfg.Timeout
	r.Logger = nil

	return &Client{
		http:      r.StandardClient(),
		baseURL:   cfg.APIBaseURL,
		token:     cfg.Token,
		userAgent: cfg.UserAgent,
		topRepos:  cfg.TopRepos,
		logger:    logger,
	}
}

type userResponse struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	PublicRepos int    `json:"public_repos"`
	CreatedAt   string `json:"created_at"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	AvatarURL   string `json:"avatar_url"`
}

type repoResponse struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	Language        string `json:"language"`
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode}).Error("github: unexpected response")
		}
		return fmt.Errorf("github returned status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode github response: %w", err)
	}
	return nil
}

// FetchProfile loads the user plus their most recently updated repositories.
func (c *Client) FetchProfile(ctx context.Context, username string) (*domain.Profile, error) {
	var user userResponse
	if err := c.get(ctx, "/users/"+url.PathEscape(username), &user); err != nil {
		return nil, err
	}

	var repos []repoResponse
	reposPath := fmt.Sprintf("/users/%s/repos?sort=updated&per_page=%d", url.PathEscape(username), c.topRepos)
	if err := c.get(ctx, reposPath, &repos); err != nil {
		return nil, err
	}

	profile := &domain.Profile{
		Username:         user.Login,
		Name:             user.Name,
		Bio:              user.Bio,
		Followers:        user.Followers,
		Following:        user.Following,
		PublicRepos:      user.PublicRepos,
		AccountCreatedAt: user.CreatedAt,
		Company:          user.Company,
		Location:         user.Location,
		AvatarURL:        user.AvatarURL,
	}
	for _, repo := range repos {
		profile.TopRepos = append(profile.TopRepos, domain.Repo{
			Name:        repo.Name,
			Description: repo.Description,
			Stars:       repo.StargazersCount,
			Forks:       repo.ForksCount,
			Language:    repo.Language,
		})
	}
	return profile, nil
}

// FetchAvatarURL loads just the avatar URL for the backfill job.
func (c *Client) FetchAvatarURL(ctx context.Context, username string) (string, error) {
	var user userResponse
	if err := c.get(ctx, "/users/"+url.PathEscape(username), &user); err != nil {
		return "", err
	}
	return user.AvatarURL, nil
}
