// Package lms is the REST client for the learning management system that
// owns courses, grades, completions and enrollments.
package lms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/clientcredentials"
)

// Config holds LMS connection settings.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	RetryCount   int
}

// Validate checks that the required fields are set.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("LMS base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid LMS base URL: %w", err)
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("LMS client credentials are required")
	}
	return nil
}

// UserDirectory resolves LMS usernames to local user records.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUsersByUsernames(ctx context.Context, usernames []string) (map[string]*models.User, error)
}

// Client talks to the LMS REST API.
type Client struct {
	http   *resty.Client
	users  UserDirectory
	logger zerolog.Logger
}

// New creates a Client authenticated with an OAuth2 client-credentials token.
func New(ctx context.Context, cfg Config, users UserDirectory, logger zerolog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	oauth := clientcredentials.Config{
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		TokenURL:       base + "/oauth2/access_token",
		EndpointParams: url.Values{"token_type": {"jwt"}},
	}

	client := NewWithHTTPClient(base, oauth.Client(ctx), users, logger)
	if cfg.Timeout > 0 {
		client.http.SetTimeout(cfg.Timeout)
	}
	client.http.SetRetryCount(cfg.RetryCount)
	return client, nil
}

// NewWithHTTPClient creates a Client over an already authenticated http.Client.
func NewWithHTTPClient(baseURL string, httpClient *http.Client, users UserDirectory, logger zerolog.Logger) *Client {
	r := resty.NewWithClient(httpClient).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{
		http:   r,
		users:  users,
		logger: logger.With().Str("component", "lms_client").Logger(),
	}
}

// get issues a GET request and decodes the JSON body into result.
func (c *Client) get(ctx context.Context, path string, query map[string]string, result any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(result).
		Get(path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("GET %s: %w", path, ErrNotFound)
	}
	if resp.IsError() {
		return fmt.Errorf("GET %s: unexpected status %d: %s", path, resp.StatusCode(), truncate(resp.String(), 200))
	}

	c.logger.Debug().Str("path", path).Dur("duration", resp.Time()).Msg("LMS request completed")
	return nil
}

// nextPage extracts the page query parameter of a "next" pagination link.
func nextPage(next string) (int, bool) {
	if next == "" {
		return 0, false
	}
	u, err := url.Parse(next)
	if err != nil {
		return 0, false
	}
	var page int
	if _, err := fmt.Sscanf(u.Query().Get("page"), "%d", &page); err != nil || page <= 0 {
		return 0, false
	}
	return page, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
