package streams

import (
	"context"
	"testing"
	"time"

	"github.com/streamshq/streams/pkg/streams/github"
)

func testPull(id int64, number int, title, headRef string, updatedAt time.Time) githubPull {
	pull := githubPull{
		ID:        id,
		Number:    number,
		Title:     title,
		State:     "open",
		HTMLURL:   "https://github.com/o/r/pull/7",
		CreatedAt: updatedAt.Add(-24 * time.Hour),
		UpdatedAt: updatedAt,
		User:      &Actor{ID: 5, Login: "bob"},
	}
	pull.Head.Ref = headRef
	return pull
}

func TestPullRequestsLoader(t *testing.T) {
	pullsPath := "/repos/o/r/pulls?state=all&per_page=100"
	nextURL := "https://api.github.com/repos/o/r/pulls?state=all&per_page=100&page=2"
	mock := &mockAPI{responses: map[string]mockResponse{
		pullsPath: {
			body: []githubPull{testPull(42, 7, "Add feature x", "feature-x", testNow.Add(-time.Hour))},
			next: nextURL,
			last: nextURL,
		},
		nextURL: {
			body: []githubPull{testPull(43, 8, "Fix bug", "bugfix", testNow.Add(-2*time.Hour))},
		},
	}}

	client := newTestClient(mock)
	idx, err := client.pullRequests(context.Background(), "o", "r")
	if err != nil {
		t.Fatalf("pullRequests() error: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("index has %d PRs, want 2", idx.Len())
	}

	pr, ok := idx.ByID(42)
	if !ok {
		t.Fatal("PR 42 not indexed")
	}
	if pr.HeadRef != "refs/heads/feature-x" {
		t.Errorf("head ref = %q, want normalized %q", pr.HeadRef, "refs/heads/feature-x")
	}
	if pr.Author != "bob" {
		t.Errorf("author = %q, want %q", pr.Author, "bob")
	}
	if pr.Events == nil || pr.Events.Len() != 0 {
		t.Error("loaded PR must start with empty buckets")
	}
	if got := idx.Resolve("feature-x"); got == nil || got.ID != 42 {
		t.Error("loaded PR not resolvable by short branch name")
	}
}

func TestFetchRepository(t *testing.T) {
	t2 := testNow.Add(-2 * time.Hour)
	t3 := testNow.Add(-time.Hour)

	push := RawEvent{
		ID:        "100",
		Type:      EventTypePush,
		Actor:     Actor{ID: 5, Login: "bob", DisplayLogin: "bob"},
		Payload:   Payload{Ref: "refs/heads/feature-x"},
		CreatedAt: t3,
	}
	watch := RawEvent{
		ID:        "101",
		Type:      EventTypeWatch,
		Actor:     Actor{ID: 9, Login: "stranger"},
		CreatedAt: t2,
	}

	mock := &mockAPI{responses: map[string]mockResponse{
		"/repos/o/r/pulls?state=all&per_page=100": {
			body: []githubPull{testPull(42, 7, "Add feature x", "feature-x", t2)},
		},
		"/repos/o/r/events?per_page=2": {
			body: []RawEvent{push, watch},
		},
	}}

	client := newTestClient(mock)
	snapshot, err := client.FetchRepository(context.Background(), "o", "r")
	if err != nil {
		t.Fatalf("FetchRepository() error: %v", err)
	}

	if snapshot.Truncated {
		t.Error("snapshot reported truncated")
	}
	if len(snapshot.PullRequests) != 1 {
		t.Fatalf("snapshot has %d pull requests, want 1", len(snapshot.PullRequests))
	}

	// The push correlates to PR 42 via its head branch.
	prGroup, ok := snapshot.Store.Group(DimensionPullRequests, "42")
	if !ok {
		t.Fatal("pullRequests group missing")
	}
	if prGroup.Events.Len() != 1 {
		t.Errorf("PR group has %d events, want 1", prGroup.Events.Len())
	}
	if snapshot.PullRequests[0].Events.Len() != 1 {
		t.Error("correlated push missing from the PR's own buckets")
	}

	if _, ok := snapshot.Store.Group(DimensionBranches, "refs/heads/feature-x"); !ok {
		t.Error("branches group missing")
	}

	// The watch event from an unseen actor contributes to the flat
	// view and type set but not the users dimension.
	if _, ok := snapshot.Store.Group(DimensionUsers, "9"); ok {
		t.Error("WatchEvent materialized a user group")
	}
	if len(snapshot.Events) != 2 {
		t.Fatalf("flat view has %d events, want 2", len(snapshot.Events))
	}
	// Most recent first.
	if snapshot.Events[0].EventID != "100" || snapshot.Events[1].EventID != "101" {
		t.Errorf("flat view order = [%s %s], want [100 101]",
			snapshot.Events[0].EventID, snapshot.Events[1].EventID)
	}

	wantTypes := []string{EventTypePush, EventTypeWatch}
	if len(snapshot.Types) != len(wantTypes) {
		t.Fatalf("types = %v, want %v", snapshot.Types, wantTypes)
	}
}

func TestFetchRepositoryDegradesWithoutPullSnapshot(t *testing.T) {
	mock := &mockAPI{responses: map[string]mockResponse{
		"/repos/o/r/pulls?state=all&per_page=100": {
			err: &github.Error{StatusCode: 403, Status: "403 Forbidden"},
		},
		"/repos/o/r/events?per_page=2": {
			body: rawEvents("1"),
		},
	}}

	client := newTestClient(mock)
	snapshot, err := client.FetchRepository(context.Background(), "o", "r")
	if err != nil {
		t.Fatalf("FetchRepository() error: %v, want degraded snapshot", err)
	}

	// Branches still populate; only PR cross-linking drops.
	if _, ok := snapshot.Store.Group(DimensionBranches, "refs/heads/main"); !ok {
		t.Error("branches group missing after degraded PR snapshot")
	}
	if groups := snapshot.Store.Groups(DimensionPullRequests); len(groups) != 0 {
		t.Errorf("pullRequests dimension has %d groups, want 0", len(groups))
	}
}

func TestFetchRepositoryFailsOnEventsError(t *testing.T) {
	mock := &mockAPI{responses: map[string]mockResponse{
		"/repos/o/r/events?per_page=2": {
			err: &github.Error{StatusCode: 500, Status: "500 Internal Server Error"},
		},
	}}

	client := newTestClient(mock)
	if _, err := client.FetchRepository(context.Background(), "o", "r"); err == nil {
		t.Fatal("FetchRepository() returned nil error for failed events walk")
	}
}

func TestFetchAllDegradesFailedSource(t *testing.T) {
	mock := &mockAPI{responses: map[string]mockResponse{
		"/repos/o/good/events?per_page=2": {body: rawEvents("1", "2")},
		"/repos/o/bad/events?per_page=2": {
			err: &github.Error{StatusCode: 500, Status: "500 Internal Server Error"},
		},
	}}

	client := newTestClient(mock)
	snapshot, err := client.FetchAll(context.Background(), []Repo{
		{Owner: "o", Name: "good"},
		{Owner: "o", Name: "bad"},
	})
	if err != nil {
		t.Fatalf("FetchAll() error: %v, want degraded snapshot", err)
	}

	// The failed source degrades to empty instead of aborting the cycle.
	if len(snapshot.Events) != 2 {
		t.Errorf("flat view has %d events, want 2 from the healthy source", len(snapshot.Events))
	}
	if _, ok := snapshot.Store.Group(DimensionUsers, "1"); !ok {
		t.Error("users group from healthy source missing")
	}
}

func TestFetchAllMergesSourcesIntoOneStore(t *testing.T) {
	eventA := RawEvent{
		ID:        "1",
		Type:      EventTypePush,
		Actor:     Actor{ID: 1, Login: "alice"},
		Payload:   Payload{Ref: "refs/heads/main"},
		CreatedAt: testNow.Add(-2 * time.Hour),
	}
	eventB := RawEvent{
		ID:        "2",
		Type:      EventTypePush,
		Actor:     Actor{ID: 1, Login: "alice"},
		Payload:   Payload{Ref: "refs/heads/main"},
		CreatedAt: testNow.Add(-time.Hour),
	}

	mock := &mockAPI{responses: map[string]mockResponse{
		"/repos/o/one/events?per_page=2": {body: []RawEvent{eventA}},
		"/repos/o/two/events?per_page=2": {body: []RawEvent{eventB}},
	}}

	client := newTestClient(mock)
	snapshot, err := client.FetchAll(context.Background(), []Repo{
		{Owner: "o", Name: "one"},
		{Owner: "o", Name: "two"},
	})
	if err != nil {
		t.Fatalf("FetchAll() error: %v", err)
	}

	user, ok := snapshot.Store.Group(DimensionUsers, "1")
	if !ok {
		t.Fatal("users group missing")
	}
	if got := user.Events.Len(); got != 2 {
		t.Errorf("user group has %d events across sources, want 2", got)
	}
	if len(snapshot.Events) != 2 {
		t.Fatalf("flat view has %d events, want 2", len(snapshot.Events))
	}
	if snapshot.Events[0].EventID != "2" {
		t.Errorf("flat view head = %q, want most recent event %q", snapshot.Events[0].EventID, "2")
	}
}
