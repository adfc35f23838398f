// Package github implements the research tools the agent can call: repository
// search, starred listings and README retrieval against the GitHub REST API.
// Results are formatted as compact text for model consumption.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"
	userAgent      = "githubhunt-gateway/1.0"

	defaultSearchLimit  = 5
	defaultStarredLimit = 10
	maxLimit            = 30
	maxReadmeBytes      = 16 * 1024
	maxErrorBytes       = 4 * 1024
)

// Client calls the GitHub REST API. The token is optional; without it
// requests run against the unauthenticated rate limit.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// New constructs a Client. An empty baseURL selects api.github.com.
func New(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				DialContext:     (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				MaxIdleConns:    50,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

type repository struct {
	FullName        string `json:"full_name"`
	Description     string `json:"description"`
	StargazersCount int    `json:"stargazers_count"`
	Language        string `json:"language"`
	HTMLURL         string `json:"html_url"`
}

type searchResponse struct {
	TotalCount int          `json:"total_count"`
	Items      []repository `json:"items"`
}

// SearchRepositories searches repositories matching the query, most-starred
// first, and renders up to limit results.
func (c *Client) SearchRepositories(ctx context.Context, query string, limit int) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", errors.New("search query must not be empty")
	}
	limit = clampLimit(limit, defaultSearchLimit)

	endpoint := fmt.Sprintf("%s/search/repositories?q=%s&sort=stars&order=desc&per_page=%d",
		c.baseURL, url.QueryEscape(query), limit)

	var payload searchResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return "", fmt.Errorf("search repositories: %w", err)
	}

	if len(payload.Items) == 0 {
		return fmt.Sprintf("No repositories matched %q.", query), nil
	}
	return formatRepositories(payload.Items), nil
}

// UserStarred lists repositories the given user has starred, most recent
// first.
func (c *Client) UserStarred(ctx context.Context, username string, limit int) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", errors.New("username must not be empty")
	}
	limit = clampLimit(limit, defaultStarredLimit)

	endpoint := fmt.Sprintf("%s/users/%s/starred?per_page=%d",
		c.baseURL, url.PathEscape(username), limit)

	var repos []repository
	if err := c.getJSON(ctx, endpoint, &repos); err != nil {
		return "", fmt.Errorf("list starred for %s: %w", username, err)
	}

	if len(repos) == 0 {
		return fmt.Sprintf("User %s has no starred repositories.", username), nil
	}
	return formatRepositories(repos), nil
}

// RepoReadme fetches a repository README as raw text, truncated to a size
// the model can reasonably digest.
func (c *Client) RepoReadme(ctx context.Context, owner, repo string) (string, error) {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(repo) == "" {
		return "", errors.New("owner and repo must not be empty")
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/readme",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo))

	req, err := c.newRequest(ctx, endpoint)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github.raw+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch readme: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Sprintf("Repository %s/%s has no README or does not exist.", owner, repo), nil
	}
	if resp.StatusCode >= 400 {
		return "", apiError(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReadmeBytes+1))
	if err != nil {
		return "", fmt.Errorf("read readme body: %w", err)
	}

	text := string(body)
	if len(body) > maxReadmeBytes {
		text = text[:maxReadmeBytes] + "\n\n[README truncated]"
	}
	return text, nil
}

func (c *Client) newRequest(ctx context.Context, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	req, err := c.newRequest(ctx, endpoint)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode github response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
	if err != nil {
		return fmt.Errorf("github status %d and failed to read body: %w", resp.StatusCode, err)
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return fmt.Errorf("github status %d: %s", resp.StatusCode, payload.Message)
	}
	return fmt.Errorf("github status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func formatRepositories(repos []repository) string {
	var b strings.Builder
	for i, repo := range repos {
		desc := strings.TrimSpace(repo.Description)
		if desc == "" {
			desc = "(no description)"
		}
		lang := repo.Language
		if lang == "" {
			lang = "unknown"
		}

		fmt.Fprintf(&b, "%d. %s [%s stars, %s]\n   %s\n   %s\n",
			i+1, repo.FullName, formatStars(repo.StargazersCount), lang, desc, repo.HTMLURL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStars(count int) string {
	if count >= 1000 {
		return strconv.FormatFloat(float64(count)/1000, 'f', 1, 64) + "k"
	}
	return strconv.Itoa(count)
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
