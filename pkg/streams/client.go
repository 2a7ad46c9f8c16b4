// Package streams ingests paginated activity event feeds from GitHub
// repositories and aggregates them into a multi-dimensional,
// recency-bucketed view for a display layer. One fetch cycle walks the
// events feed, loads the pull request snapshot, classifies every event
// into user/issue/branch/pull-request groups and correlates push
// activity to pull requests by head branch.
package streams

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/streamshq/streams/pkg/streams/github"
)

const (
	// HTTP client configuration constants.
	maxIdleConns        = 100
	maxIdleConnsPerHost = 10
	idleConnTimeoutSec  = 90

	// maxPerPage is the page size for snapshot listings.
	maxPerPage = 100

	// defaultPageSize is the events-feed page size.
	defaultPageSize = 100
	// defaultPageLimit caps events-feed pages per walk to bound API quota usage.
	defaultPageLimit = 3
	// defaultPullPageLimit caps pull request snapshot pages.
	defaultPullPageLimit = 10
	// defaultPageTimeout bounds a single page fetch before the walk truncates.
	defaultPageTimeout = 30 * time.Second
	// defaultWorkers bounds concurrent repository fetches; kept small to
	// respect API rate limits.
	defaultWorkers = 4
)

// Repo identifies one GitHub repository to ingest.
type Repo struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// Snapshot is the read-only outcome of one ingestion cycle: the
// aggregation store, the loaded pull requests, the flat time-sorted
// event view and the observed event types.
type Snapshot struct {
	Store        *Store           `json:"-"`
	PullRequests []*PullRequest   `json:"pull_requests"`
	Events       []FormattedEvent `json:"events"`
	Types        []string         `json:"types"`
	Truncated    bool             `json:"truncated"`
}

// Client fetches and aggregates GitHub repository activity.
type Client struct {
	github interface {
		get(ctx context.Context, path string, v any) (*github.Response, error)
	}
	logger        *slog.Logger
	token         string
	pageSize      int
	pageLimit     int
	pullPageLimit int
	pageTimeout   time.Duration
	workers       int
	now           func() time.Time
}

// githubClient adapts the low-level API client to the getter interface.
type githubClient struct {
	client *github.Client
}

func (g *githubClient) get(ctx context.Context, path string, v any) (*github.Response, error) {
	return g.client.Get(ctx, path, v)
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithLogger sets a custom logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client. Its transport is wrapped
// with retry logic if not already wrapped.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient.Transport == nil {
			httpClient.Transport = &RetryTransport{Base: http.DefaultTransport}
		} else if _, ok := httpClient.Transport.(*RetryTransport); !ok {
			httpClient.Transport = &RetryTransport{Base: httpClient.Transport}
		}
		c.github = &githubClient{client: &github.Client{HTTPClient: httpClient, Token: c.token}}
	}
}

// WithBaseURL points the client at a different API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if gc, ok := c.github.(*githubClient); ok {
			gc.client.BaseURL = baseURL
		}
	}
}

// WithPageSize sets the events-feed page size.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithPageLimit caps the number of events-feed pages fetched per walk.
func WithPageLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageLimit = n
		}
	}
}

// WithPullPageLimit caps the number of pull request snapshot pages.
func WithPullPageLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pullPageLimit = n
		}
	}
}

// WithPageTimeout bounds a single page fetch; a page exceeding it
// truncates the walk instead of failing it.
func WithPageTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pageTimeout = d
		}
	}
}

// WithWorkers bounds how many repositories FetchAll fetches concurrently.
func WithWorkers(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.workers = n
		}
	}
}

// NewClient creates a new Client with the given GitHub token.
func NewClient(token string, opts ...Option) *Client {
	transport := &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     idleConnTimeoutSec * time.Second,
	}
	c := &Client{
		logger: slog.Default(),
		token:  token,
		github: &githubClient{
			client: &github.Client{
				HTTPClient: &http.Client{
					Transport: &RetryTransport{Base: transport},
					Timeout:   60 * time.Second,
				},
				Token: token,
			},
		},
		pageSize:      defaultPageSize,
		pageLimit:     defaultPageLimit,
		pullPageLimit: defaultPullPageLimit,
		pageTimeout:   defaultPageTimeout,
		workers:       defaultWorkers,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// source is the raw material fetched for one repository before
// classification.
type source struct {
	repo      Repo
	pulls     *PullRequestIndex
	events    []RawEvent
	truncated bool
	err       error
}

// fetchSource fetches one repository's pull request snapshot and event
// feed. The snapshot loads first: branch correlation depends on the
// index being fully populated before any push or PR event is
// classified. A failed snapshot degrades to an empty index (branches
// still populate, cross-linking drops) rather than failing the source.
func (c *Client) fetchSource(ctx context.Context, repo Repo) source {
	src := source{repo: repo}

	pulls, err := c.pullRequests(ctx, repo.Owner, repo.Name)
	if err != nil {
		c.logger.WarnContext(ctx, "pull request snapshot failed, branch correlation disabled",
			"owner", repo.Owner, "repo", repo.Name, "error", err)
		pulls = nil
	}
	src.pulls = pulls

	src.events, src.truncated, src.err = c.events(ctx, repo.Owner, repo.Name)
	return src
}

// classifySource runs one fetched source through an aggregator bound to
// the shared store and returns the source's flat event view.
func (c *Client) classifySource(store *Store, src source) []FormattedEvent {
	agg := NewAggregator(store, src.pulls)
	agg.logger = c.logger
	agg.now = c.now
	for i := range src.events {
		agg.Classify(&src.events[i])
	}
	return agg.Events()
}

// FetchRepository runs one ingestion cycle against a single repository.
func (c *Client) FetchRepository(ctx context.Context, owner, repo string) (*Snapshot, error) {
	src := c.fetchSource(ctx, Repo{Owner: owner, Name: repo})
	if src.err != nil {
		return nil, src.err
	}

	store := NewStore()
	flat := c.classifySource(store, src)

	snapshot := &Snapshot{
		Store:        store,
		PullRequests: src.pulls.All(),
		Events:       Merge(flat),
		Types:        store.Types(),
		Truncated:    src.truncated,
	}
	c.logger.InfoContext(ctx, "ingestion cycle complete",
		"owner", owner, "repo", repo,
		"events", len(snapshot.Events),
		"pull_requests", len(snapshot.PullRequests),
		"truncated", snapshot.Truncated)
	return snapshot, nil
}

// FetchAll runs one ingestion cycle across several repositories.
// Fetching runs through a bounded worker pool; classification stays on
// this goroutine, which solely owns the store (single-writer design).
// A source that fails to fetch degrades to empty instead of aborting
// the cycle.
func (c *Client) FetchAll(ctx context.Context, repos []Repo) (*Snapshot, error) {
	sources := make([]source, len(repos))

	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup
	for i, repo := range repos {
		wg.Add(1)
		go func(i int, repo Repo) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			sources[i] = c.fetchSource(ctx, repo)
		}(i, repo)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store := NewStore()
	snapshot := &Snapshot{Store: store}
	flat := make([][]FormattedEvent, 0, len(sources))
	for _, src := range sources {
		if src.err != nil {
			c.logger.WarnContext(ctx, "source degraded to empty",
				"owner", src.repo.Owner, "repo", src.repo.Name, "error", src.err)
			continue
		}
		flat = append(flat, c.classifySource(store, src))
		snapshot.PullRequests = append(snapshot.PullRequests, src.pulls.All()...)
		snapshot.Truncated = snapshot.Truncated || src.truncated
	}
	snapshot.Events = Merge(flat...)
	snapshot.Types = store.Types()

	c.logger.InfoContext(ctx, "ingestion cycle complete",
		"repos", len(repos),
		"events", len(snapshot.Events),
		"pull_requests", len(snapshot.PullRequests),
		"truncated", snapshot.Truncated)
	return snapshot, nil
}
