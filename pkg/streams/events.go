package streams

import (
	"bytes"
	"encoding/json"
	"time"
)

// SourceGitHub identifies events that originated from the GitHub feed.
const SourceGitHub = "github"

// Event type constants as they appear on the GitHub events feed.
const (
	EventTypePush                     = "PushEvent"
	EventTypePullRequest              = "PullRequestEvent"
	EventTypePullRequestReviewComment = "PullRequestReviewCommentEvent"
	EventTypeIssues                   = "IssuesEvent"
	EventTypeIssueComment             = "IssueCommentEvent"
	EventTypeCreate                   = "CreateEvent"
	EventTypeDelete                   = "DeleteEvent"
	EventTypeWatch                    = "WatchEvent"
	EventTypeFork                     = "ForkEvent"
	EventTypeStar                     = "StarEvent"
	EventTypeMembership               = "MembershipEvent"
	EventTypeRelease                  = "ReleaseEvent"
)

// refTypeBranch is the payload ref_type for branch create/delete events.
const refTypeBranch = "branch"

// RawEvent is one element of the repository events feed. It is
// immutable once fetched; the classifier only reads it.
type RawEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Actor     Actor     `json:"actor"`
	Payload   Payload   `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Actor is the user who performed an event.
type Actor struct {
	ID           int64  `json:"id"`
	Login        string `json:"login"`
	DisplayLogin string `json:"display_login"`
}

// DisplayName returns the name shown for the actor, falling back to the
// login when the feed omits display_login.
func (a Actor) DisplayName() string {
	if a.DisplayLogin != "" {
		return a.DisplayLogin
	}
	return a.Login
}

// Payload is the type-dependent portion of a raw event. Only the fields
// the classifier consumes are decoded; everything else stays in the
// RawEvent's JSON. Fields are nil or empty when absent for the event
// type, which the classifier treats as "skip that dimension".
type Payload struct {
	Ref         string          `json:"ref"`
	RefType     string          `json:"ref_type"`
	Action      string          `json:"action"`
	Issue       *PayloadIssue   `json:"issue"`
	PullRequest *PayloadPull    `json:"pull_request"`
	Comment     json.RawMessage `json:"comment,omitempty"`
}

// PayloadIssue is the issue attached to IssuesEvent and
// IssueCommentEvent payloads. PullRequest is set when GitHub is
// reporting activity on a pull request through the issues API; such
// events must not populate the issues dimension.
type PayloadIssue struct {
	ID          int64           `json:"id"`
	Number      int             `json:"number"`
	Title       string          `json:"title"`
	PullRequest json.RawMessage `json:"pull_request,omitempty"`
}

// isPullRequest reports whether the issue is PR-backed. A literal null
// field decodes to non-empty RawMessage bytes, so the check cannot be a
// plain nil comparison.
func (i *PayloadIssue) isPullRequest() bool {
	return len(i.PullRequest) > 0 && !bytes.Equal(i.PullRequest, []byte("null"))
}

// PayloadPull is the pull request attached to PullRequestEvent and
// PullRequestReviewCommentEvent payloads.
type PayloadPull struct {
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
}

// FormattedEvent is the projection of a raw event stored in buckets and
// in the flat activity view.
type FormattedEvent struct {
	Source    string    `json:"source"`
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	ActorID   int64     `json:"actor_id"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
	Data      *RawEvent `json:"data"`
}

// formatEvent projects a raw event for bucket storage.
func formatEvent(event *RawEvent) FormattedEvent {
	return FormattedEvent{
		Source:    SourceGitHub,
		EventID:   event.ID,
		Type:      event.Type,
		ActorID:   event.Actor.ID,
		Actor:     event.Actor.DisplayName(),
		CreatedAt: event.CreatedAt,
		Data:      event,
	}
}
