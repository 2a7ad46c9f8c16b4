package streams

import (
	"testing"
	"time"
)

func TestNormalizeRef(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{name: "short name", ref: "main", want: "refs/heads/main"},
		{name: "already qualified", ref: "refs/heads/main", want: "refs/heads/main"},
		{name: "slashes in branch name", ref: "feature/login", want: "refs/heads/feature/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeRef(tt.ref)
			if got != tt.want {
				t.Errorf("NormalizeRef(%q) = %q, want %q", tt.ref, got, tt.want)
			}
			// Normalization must be idempotent.
			if again := NormalizeRef(got); again != got {
				t.Errorf("NormalizeRef(NormalizeRef(%q)) = %q, want %q", tt.ref, again, got)
			}
		})
	}
}

func TestPullRequestIndexResolve(t *testing.T) {
	older := &PullRequest{ID: 1, HeadRef: "refs/heads/feature-x", UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := &PullRequest{ID: 2, HeadRef: "refs/heads/feature-x", UpdatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	other := &PullRequest{ID: 3, HeadRef: "refs/heads/other", UpdatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}

	idx := NewPullRequestIndex()
	idx.Add(older)
	idx.Add(newer)
	idx.Add(other)

	tests := []struct {
		name   string
		ref    string
		wantID int64
	}{
		{name: "qualified ref", ref: "refs/heads/feature-x", wantID: 2},
		{name: "short ref", ref: "feature-x", wantID: 2},
		{name: "single candidate", ref: "other", wantID: 3},
		{name: "no match", ref: "missing", wantID: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := idx.Resolve(tt.ref)
			if tt.wantID == 0 {
				if pr != nil {
					t.Fatalf("Resolve(%q) = PR %d, want nil", tt.ref, pr.ID)
				}
				return
			}
			if pr == nil {
				t.Fatalf("Resolve(%q) = nil, want PR %d", tt.ref, tt.wantID)
			}
			// Most recently updated PR wins when branches collide.
			if pr.ID != tt.wantID {
				t.Errorf("Resolve(%q) = PR %d, want PR %d", tt.ref, pr.ID, tt.wantID)
			}
		})
	}
}

func TestPullRequestIndexNilSafe(t *testing.T) {
	var idx *PullRequestIndex

	if pr := idx.Resolve("refs/heads/main"); pr != nil {
		t.Errorf("nil index Resolve = PR %d, want nil", pr.ID)
	}
	if _, ok := idx.ByID(1); ok {
		t.Error("nil index ByID reported a match")
	}
	if n := idx.Len(); n != 0 {
		t.Errorf("nil index Len = %d, want 0", n)
	}
	if all := idx.All(); all != nil {
		t.Errorf("nil index All = %v, want nil", all)
	}
}

func TestPullRequestIndexDuplicateAdd(t *testing.T) {
	idx := NewPullRequestIndex()
	first := &PullRequest{ID: 7, Title: "first", HeadRef: "refs/heads/dup"}
	idx.Add(first)
	idx.Add(&PullRequest{ID: 7, Title: "second", HeadRef: "refs/heads/dup"})

	if idx.Len() != 1 {
		t.Fatalf("Len = %d after duplicate add, want 1", idx.Len())
	}
	pr, _ := idx.ByID(7)
	if pr.Title != "first" {
		t.Errorf("duplicate add replaced PR, title = %q", pr.Title)
	}
	if got := idx.Resolve("dup"); got != first {
		t.Error("Resolve returned a different PR after duplicate add")
	}
}
