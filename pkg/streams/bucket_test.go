package streams

import (
	"testing"
	"time"
)

func TestBucketFor(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    Bucket
	}{
		{name: "just now", elapsed: 0, want: BucketToday},
		{name: "one second ago", elapsed: time.Second, want: BucketToday},
		{name: "just under a day", elapsed: 23*time.Hour + 59*time.Minute + 59*time.Second, want: BucketToday},
		{name: "exactly 24h", elapsed: 24 * time.Hour, want: BucketYesterday},
		{name: "just under 48h", elapsed: 48*time.Hour - time.Second, want: BucketYesterday},
		{name: "exactly 48h", elapsed: 48 * time.Hour, want: BucketLastWeek},
		{name: "four days", elapsed: 4 * 24 * time.Hour, want: BucketLastWeek},
		{name: "exactly seven days", elapsed: 7 * 24 * time.Hour, want: BucketLastWeek},
		{name: "just over seven days", elapsed: 7*24*time.Hour + time.Second, want: BucketLastMonth},
		{name: "twenty days", elapsed: 20 * 24 * time.Hour, want: BucketLastMonth},
		{name: "exactly thirty days", elapsed: 30 * 24 * time.Hour, want: BucketLastMonth},
		{name: "just over thirty days", elapsed: 30*24*time.Hour + time.Second, want: BucketCatchAll},
		{name: "one year", elapsed: 365 * 24 * time.Hour, want: BucketCatchAll},
		{name: "future event", elapsed: -time.Hour, want: BucketToday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bucketFor(now.Add(-tt.elapsed), now)
			if got != tt.want {
				t.Errorf("bucketFor(elapsed=%v) = %q, want %q", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestBucketForPartitions(t *testing.T) {
	// Every elapsed duration must land in exactly one bucket; sweeping
	// across the boundaries should never produce an unknown name.
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	known := map[Bucket]bool{
		BucketToday:     true,
		BucketYesterday: true,
		BucketLastWeek:  true,
		BucketLastMonth: true,
		BucketCatchAll:  true,
	}

	for elapsed := -2 * time.Hour; elapsed <= 32*24*time.Hour; elapsed += 30 * time.Minute {
		if got := bucketFor(now.Add(-elapsed), now); !known[got] {
			t.Fatalf("bucketFor(elapsed=%v) = %q, not a known bucket", elapsed, got)
		}
	}
}

func TestBucketedEventsFlatten(t *testing.T) {
	var b BucketedEvents
	b.add(BucketLastWeek, FormattedEvent{EventID: "3"})
	b.add(BucketToday, FormattedEvent{EventID: "1"})
	b.add(BucketToday, FormattedEvent{EventID: "2"})
	b.add(BucketCatchAll, FormattedEvent{EventID: "4"})

	if b.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", b.Len())
	}

	flat := b.Flatten()
	wantOrder := []string{"1", "2", "3", "4"}
	if len(flat) != len(wantOrder) {
		t.Fatalf("Flatten() returned %d events, want %d", len(flat), len(wantOrder))
	}
	for i, want := range wantOrder {
		if flat[i].EventID != want {
			t.Errorf("Flatten()[%d].EventID = %q, want %q", i, flat[i].EventID, want)
		}
	}
}
