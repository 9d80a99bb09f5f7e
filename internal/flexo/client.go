// Package flexo is an HTTP client for the project, commit, and element
// endpoints of a Flexo SysML v2 model repository.
package flexo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mbsekit/flexo-bridge/internal/logger"
	"github.com/mbsekit/flexo-bridge/internal/model"
)

var log = logger.ForComponent("flexo")

var ErrNotFound = errors.New("not found")

// StatusError is returned for non-2xx responses that are not plain 404s.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

type ClientConfig struct {
	BaseURL string
	// Token is the API key; a missing "Bearer " prefix is added.
	Token      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
	}
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("repository base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultClientConfig().Timeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultClientConfig().MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultClientConfig().RetryDelay
	}

	token := strings.TrimSpace(cfg.Token)
	if token != "" && !strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = "Bearer " + token
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	var lastErr error
	delay := c.retryDelay

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			log.Debug("retrying request", "method", method, "path", path, "attempt", attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		err := c.doOnce(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
	}

	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &StatusError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       truncate(string(data), 512),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func isRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Transport-level failures are worth another attempt.
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

const projectPageSize = 100

// projectPages walks the project collection page by page using the
// cursor-style page[size]/page[after] parameters. visit returns false to
// stop early.
func (c *Client) projectPages(ctx context.Context, visit func([]Project) bool) error {
	after := ""
	for {
		path := fmt.Sprintf("/projects?page[size]=%d", projectPageSize)
		if after != "" {
			path += "&page[after]=" + url.QueryEscape(after)
		}
		var page []Project
		if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		if !visit(page) || len(page) < projectPageSize {
			return nil
		}
		after = page[len(page)-1].ID
	}
}

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	err := c.projectPages(ctx, func(page []Project) bool {
		projects = append(projects, page...)
		return true
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProjectByName resolves a project by exact name, stopping at the
// first matching page. Returns ErrNotFound when no project matches.
func (c *Client) GetProjectByName(ctx context.Context, name string) (Project, error) {
	var found *Project
	err := c.projectPages(ctx, func(page []Project) bool {
		for _, p := range page {
			if p.Name == name {
				found = &p
				return false
			}
		}
		return true
	})
	if err != nil {
		return Project{}, err
	}
	if found == nil {
		return Project{}, fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	return *found, nil
}

func (c *Client) CreateProject(ctx context.Context, name, description string) (Project, error) {
	req := projectRequest{Type: "Project", Name: name, Description: description}
	var project Project
	if err := c.do(ctx, http.MethodPost, "/projects", req, &project); err != nil {
		return Project{}, fmt.Errorf("create project %q: %w", name, err)
	}
	log.Info("created project", "name", name, "id", project.ID)
	return project, nil
}

func (c *Client) ListCommits(ctx context.Context, projectID string) ([]Commit, error) {
	var commits []Commit
	path := "/projects/" + projectID + "/commits"
	if err := c.do(ctx, http.MethodGet, path, nil, &commits); err != nil {
		return nil, fmt.Errorf("list commits for %s: %w", projectID, err)
	}
	return commits, nil
}

// LatestCommit returns the newest commit by creation time. Returns
// ErrNotFound for a project with no commits.
func (c *Client) LatestCommit(ctx context.Context, projectID string) (Commit, error) {
	commits, err := c.ListCommits(ctx, projectID)
	if err != nil {
		return Commit{}, err
	}
	if len(commits) == 0 {
		return Commit{}, fmt.Errorf("no commits on project %s: %w", projectID, ErrNotFound)
	}

	latest := commits[0]
	for _, commit := range commits[1:] {
		if commit.Created.After(latest.Created) {
			latest = commit
		}
	}
	return latest, nil
}

func (c *Client) ListElements(ctx context.Context, projectID, commitID string) ([]model.Element, error) {
	var elements []model.Element
	path := "/projects/" + projectID + "/commits/" + commitID + "/elements"
	if err := c.do(ctx, http.MethodGet, path, nil, &elements); err != nil {
		return nil, fmt.Errorf("list elements for %s@%s: %w", projectID, commitID, err)
	}
	return elements, nil
}

// CommitChanges posts a change set to the project and returns the created
// commit.
func (c *Client) CommitChanges(ctx context.Context, projectID string, changes []model.ChangeEntry, description string) (Commit, error) {
	req := commitRequest{Type: "Commit", Change: changes, Description: description}
	var commit Commit
	path := "/projects/" + projectID + "/commits"
	if err := c.do(ctx, http.MethodPost, path, req, &commit); err != nil {
		return Commit{}, fmt.Errorf("commit to %s: %w", projectID, err)
	}
	if commit.ID == "" {
		return Commit{}, fmt.Errorf("commit to %s: repository returned no commit id", projectID)
	}
	log.Info("committed changes", "project", projectID, "commit", commit.ID, "elements", len(changes))
	return commit, nil
}
