package streams

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// branchRefPrefix is the fully-qualified branch reference prefix.
// Push payloads carry fully-qualified refs while pull request head refs
// are short names; every branch key is normalized before lookup or
// storage so the two can be compared.
const branchRefPrefix = "refs/heads/"

// NormalizeRef returns the fully-qualified form of a branch reference.
// It is idempotent: already-qualified refs pass through unchanged.
func NormalizeRef(ref string) string {
	if strings.HasPrefix(ref, branchRefPrefix) {
		return ref
	}
	return branchRefPrefix + ref
}

// PullRequest is the minimal projection of a repository pull request
// used for branch correlation and the pullRequests dimension. It is
// mutated only by appending correlated events into Events.
type PullRequest struct {
	ID        int64           `json:"id"`
	Number    int             `json:"number"`
	Title     string          `json:"title"`
	State     string          `json:"state"`
	HeadRef   string          `json:"head_ref"` // normalized, refs/heads/<name>
	Author    string          `json:"author"`
	Assignees []string        `json:"assignees,omitempty"`
	Labels    []string        `json:"labels,omitempty"`
	URL       string          `json:"url"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Events    *BucketedEvents `json:"events"`
}

// PullRequestIndex looks up pull requests by id and by normalized head
// branch. A nil or empty index degrades every lookup to "no match",
// which keeps branch grouping working when the snapshot load failed.
type PullRequestIndex struct {
	byID     map[int64]*PullRequest
	byBranch map[string][]*PullRequest
}

// NewPullRequestIndex creates an empty index.
func NewPullRequestIndex() *PullRequestIndex {
	return &PullRequestIndex{
		byID:     make(map[int64]*PullRequest),
		byBranch: make(map[string][]*PullRequest),
	}
}

// Add indexes a pull request by id and head branch. A PR already
// present by id is ignored.
func (idx *PullRequestIndex) Add(pr *PullRequest) {
	if idx == nil || pr == nil {
		return
	}
	if _, ok := idx.byID[pr.ID]; ok {
		return
	}
	if pr.Events == nil {
		pr.Events = &BucketedEvents{}
	}
	idx.byID[pr.ID] = pr
	if pr.HeadRef != "" {
		ref := NormalizeRef(pr.HeadRef)
		idx.byBranch[ref] = append(idx.byBranch[ref], pr)
	}
}

// ByID returns the pull request with the given id, if indexed.
func (idx *PullRequestIndex) ByID(id int64) (*PullRequest, bool) {
	if idx == nil {
		return nil, false
	}
	pr, ok := idx.byID[id]
	return pr, ok
}

// Resolve finds the pull request whose head branch matches the given
// reference. When several pull requests share a head branch (reopened
// PRs, recycled branch names) the most recently updated one wins.
func (idx *PullRequestIndex) Resolve(ref string) *PullRequest {
	if idx == nil || ref == "" {
		return nil
	}
	candidates := idx.byBranch[NormalizeRef(ref)]
	var match *PullRequest
	for _, pr := range candidates {
		if match == nil || pr.UpdatedAt.After(match.UpdatedAt) {
			match = pr
		}
	}
	return match
}

// Len reports the number of indexed pull requests.
func (idx *PullRequestIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.byID)
}

// All returns the indexed pull requests in no particular order.
func (idx *PullRequestIndex) All() []*PullRequest {
	if idx == nil {
		return nil
	}
	out := make([]*PullRequest, 0, len(idx.byID))
	for _, pr := range idx.byID {
		out = append(out, pr)
	}
	return out
}

// githubPull is the wire shape of one element of the pulls listing.
type githubPull struct {
	ID        int64     `json:"id"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      *Actor    `json:"user"`
	Head      struct {
		Ref string `json:"ref"`
	} `json:"head"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Assignees []Actor `json:"assignees"`
}

func (p *githubPull) pullRequest() *PullRequest {
	pr := &PullRequest{
		ID:        p.ID,
		Number:    p.Number,
		Title:     p.Title,
		State:     p.State,
		URL:       p.HTMLURL,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Events:    &BucketedEvents{},
	}
	if p.Head.Ref != "" {
		pr.HeadRef = NormalizeRef(p.Head.Ref)
	}
	if p.User != nil {
		pr.Author = p.User.Login
	}
	for _, label := range p.Labels {
		pr.Labels = append(pr.Labels, label.Name)
	}
	for _, assignee := range p.Assignees {
		pr.Assignees = append(pr.Assignees, assignee.Login)
	}
	return pr
}

// pullRequests loads the pull request snapshot for a repository (all
// states) and builds the correlation index. It must complete before
// push and PR events are classified, otherwise branch correlation
// silently finds nothing.
func (c *Client) pullRequests(ctx context.Context, owner, repo string) (*PullRequestIndex, error) {
	c.logger.DebugContext(ctx, "loading pull request snapshot", "owner", owner, "repo", repo)

	idx := NewPullRequestIndex()
	path := fmt.Sprintf("/repos/%s/%s/pulls?state=all&per_page=%d", owner, repo, maxPerPage)

	for page := 0; page < c.pullPageLimit; page++ {
		var pulls []*githubPull
		resp, err := c.github.get(ctx, path, &pulls)
		if err != nil {
			return nil, fmt.Errorf("fetching pull requests: %w", err)
		}

		for _, pull := range pulls {
			idx.Add(pull.pullRequest())
		}

		if resp.NextURL == "" {
			break
		}
		path = resp.NextURL
	}

	c.logger.DebugContext(ctx, "loaded pull request snapshot", "owner", owner, "repo", repo, "count", idx.Len())
	return idx, nil
}
