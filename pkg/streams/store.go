package streams

import "sort"

// Dimension is one of the independent grouping axes under which events
// are organized.
type Dimension string

// The four grouping dimensions.
const (
	DimensionUsers        Dimension = "users"
	DimensionIssues       Dimension = "issues"
	DimensionBranches     Dimension = "branches"
	DimensionPullRequests Dimension = "pullRequests"
)

// Group is the aggregation unit for one key within one dimension: a
// title plus bucketed events. For the pullRequests dimension the
// Events pointer is shared with the corresponding PullRequest so that
// correlated events appear in both views.
type Group struct {
	Title  string          `json:"title"`
	Events *BucketedEvents `json:"events"`
}

// Store is the mutable aggregation table for one ingestion cycle:
// dimension -> group key -> group. It is rebuilt from scratch each
// cycle and must be owned by a single writer; it is passed explicitly
// into classification rather than reached through ambient state.
type Store struct {
	groups map[Dimension]map[string]*Group
	seen   map[string]struct{}
	types  map[string]struct{}
}

// NewStore creates an empty aggregation store.
func NewStore() *Store {
	return &Store{
		groups: map[Dimension]map[string]*Group{
			DimensionUsers:        {},
			DimensionIssues:       {},
			DimensionBranches:     {},
			DimensionPullRequests: {},
		},
		seen:  make(map[string]struct{}),
		types: make(map[string]struct{}),
	}
}

// Group returns the group for a key within a dimension, if it exists.
func (s *Store) Group(dim Dimension, key string) (*Group, bool) {
	g, ok := s.groups[dim][key]
	return g, ok
}

// Groups returns the group table for one dimension. Callers must not
// mutate it; writes go through the classifier.
func (s *Store) Groups(dim Dimension) map[string]*Group {
	return s.groups[dim]
}

// ensure returns the group for a key, creating it lazily on first use.
// Existing groups are never recreated, so a title passed after creation
// does not overwrite the original.
func (s *Store) ensure(dim Dimension, key, title string, events *BucketedEvents) *Group {
	if g, ok := s.groups[dim][key]; ok {
		return g
	}
	if events == nil {
		events = &BucketedEvents{}
	}
	g := &Group{Title: title, Events: events}
	s.groups[dim][key] = g
	return g
}

// markSeen records an event id and reports whether it was already
// classified this cycle. Classifying the same event twice must not
// duplicate bucket entries.
func (s *Store) markSeen(id string) bool {
	if _, ok := s.seen[id]; ok {
		return true
	}
	s.seen[id] = struct{}{}
	return false
}

// recordType tracks an observed event type for display-layer filters.
func (s *Store) recordType(eventType string) {
	if eventType != "" {
		s.types[eventType] = struct{}{}
	}
}

// Types returns the sorted set of event types observed this cycle.
func (s *Store) Types() []string {
	out := make([]string, 0, len(s.types))
	for t := range s.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
