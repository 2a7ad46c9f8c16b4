package streams

import (
	"log/slog"
	"strconv"
	"time"
)

// notNoteworthy reports whether an event type is too minor to create a
// user group on its own. Once a user group exists from any other event,
// these events are still appended to it.
func notNoteworthy(eventType string) bool {
	switch eventType {
	case EventTypeFork, EventTypeWatch, EventTypeStar, EventTypeMembership:
		return true
	default:
		return false
	}
}

// Aggregator classifies raw events into the dimensions of a Store,
// consulting a PullRequestIndex for branch correlation. It is not safe
// for concurrent use; one goroutine owns the store and drives all
// classification (single-writer design).
type Aggregator struct {
	store  *Store
	pulls  *PullRequestIndex
	logger *slog.Logger
	now    func() time.Time
	all    []FormattedEvent
}

// NewAggregator creates an aggregator writing into store and resolving
// pull requests through pulls. A nil pulls index disables correlation
// rather than failing: branches still populate, cross-linking drops.
func NewAggregator(store *Store, pulls *PullRequestIndex) *Aggregator {
	return &Aggregator{
		store:  store,
		pulls:  pulls,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// Store returns the aggregation store the aggregator writes into.
func (a *Aggregator) Store() *Store { return a.store }

// Events returns the flat, unsorted view of every event classified so
// far, in arrival order. Feed it to Merge for the chronological view.
func (a *Aggregator) Events() []FormattedEvent { return a.all }

// Classify routes one raw event into the aggregation store. Events
// whose payload is missing fields expected for their type are skipped
// for the affected dimension only; the user-dimension write still
// happens. Classifying the same event id twice is a no-op.
func (a *Aggregator) Classify(event *RawEvent) {
	if event == nil {
		return
	}
	if event.ID != "" && a.store.markSeen(event.ID) {
		return
	}
	a.store.recordType(event.Type)

	formatted := formatEvent(event)
	bucket := bucketFor(event.CreatedAt, a.now())
	a.all = append(a.all, formatted)

	a.classifyUser(event, bucket, formatted)

	switch event.Type {
	case EventTypeIssues, EventTypeIssueComment:
		issue := event.Payload.Issue
		if issue == nil {
			a.malformed(event, "missing issue payload")
			return
		}
		// GitHub reports PR activity through the issues API as well;
		// those must not appear in the issues dimension.
		if issue.isPullRequest() {
			return
		}
		a.add(DimensionIssues, strconv.FormatInt(issue.ID, 10), issue.Title, bucket, formatted)

	case EventTypePush:
		if event.Payload.Ref == "" {
			a.malformed(event, "missing push ref")
			return
		}
		ref := NormalizeRef(event.Payload.Ref)
		a.add(DimensionBranches, ref, ref, bucket, formatted)
		if pr := a.pulls.Resolve(ref); pr != nil {
			a.addToPullRequest(pr, bucket, formatted)
		}

	case EventTypePullRequest, EventTypePullRequestReviewComment:
		pull := event.Payload.PullRequest
		if pull == nil {
			a.malformed(event, "missing pull_request payload")
			return
		}
		if pull.Head.Ref != "" {
			ref := NormalizeRef(pull.Head.Ref)
			a.add(DimensionBranches, ref, ref, bucket, formatted)
		}
		if pull.ID == 0 {
			a.malformed(event, "missing pull_request id")
			return
		}
		if event.Type == EventTypePullRequest {
			// Newly opened PRs arrive after the snapshot; index them so
			// later pushes to their branch correlate.
			a.observePull(pull)
		}
		if pr, ok := a.pulls.ByID(pull.ID); ok {
			a.addToPullRequest(pr, bucket, formatted)
		} else {
			a.add(DimensionPullRequests, strconv.FormatInt(pull.ID, 10), pull.Title, bucket, formatted)
		}

	case EventTypeCreate, EventTypeDelete:
		if event.Payload.RefType != refTypeBranch {
			return // tag create/delete is ignored
		}
		if event.Payload.Ref == "" {
			a.malformed(event, "missing ref")
			return
		}
		ref := NormalizeRef(event.Payload.Ref)
		a.add(DimensionBranches, ref, ref, bucket, formatted)

	default:
		// Other event types only contribute to the user dimension.
	}
}

// classifyUser routes the event into the users dimension keyed by actor
// id. Group creation is suppressed for not-noteworthy event types.
func (a *Aggregator) classifyUser(event *RawEvent, bucket Bucket, formatted FormattedEvent) {
	key := strconv.FormatInt(event.Actor.ID, 10)
	if _, ok := a.store.Group(DimensionUsers, key); !ok && notNoteworthy(event.Type) {
		return
	}
	a.add(DimensionUsers, key, event.Actor.DisplayName(), bucket, formatted)
}

// add writes the event into the group for (dim, key), creating the
// group lazily.
func (a *Aggregator) add(dim Dimension, key, title string, bucket Bucket, formatted FormattedEvent) {
	g := a.store.ensure(dim, key, title, nil)
	g.Events.add(bucket, formatted)
}

// addToPullRequest writes the event into the pullRequests dimension,
// sharing the group's buckets with the PullRequest itself so push
// activity on a PR's branch shows up in both views.
func (a *Aggregator) addToPullRequest(pr *PullRequest, bucket Bucket, formatted FormattedEvent) {
	g := a.store.ensure(DimensionPullRequests, strconv.FormatInt(pr.ID, 10), pr.Title, pr.Events)
	g.Events.add(bucket, formatted)
}

// observePull adds a pull request seen in an event payload to the
// correlation index. If a group for the PR already exists its buckets
// are adopted so the two views stay shared.
func (a *Aggregator) observePull(pull *PayloadPull) {
	if a.pulls == nil {
		return
	}
	if _, ok := a.pulls.ByID(pull.ID); ok {
		return
	}
	pr := &PullRequest{
		ID:        pull.ID,
		Number:    pull.Number,
		Title:     pull.Title,
		State:     pull.State,
		URL:       pull.HTMLURL,
		CreatedAt: pull.CreatedAt,
		UpdatedAt: pull.UpdatedAt,
		Events:    &BucketedEvents{},
	}
	if pull.Head.Ref != "" {
		pr.HeadRef = NormalizeRef(pull.Head.Ref)
	}
	if pull.User != nil {
		pr.Author = pull.User.Login
	}
	if g, ok := a.store.Group(DimensionPullRequests, strconv.FormatInt(pull.ID, 10)); ok {
		pr.Events = g.Events
	}
	a.pulls.Add(pr)
}

// malformed logs an event whose payload is missing expected fields.
// The event keeps its user-dimension entry; only the dimension routing
// is skipped.
func (a *Aggregator) malformed(event *RawEvent, reason string) {
	a.logger.Warn("skipping malformed event payload",
		"event_id", event.ID,
		"type", event.Type,
		"reason", reason)
}
