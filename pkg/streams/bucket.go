package streams

import "time"

// Bucket is the recency class an event falls into within a group.
type Bucket string

// Bucket names, ordered from most to least recent.
const (
	BucketToday     Bucket = "today"
	BucketYesterday Bucket = "yesterday"
	BucketLastWeek  Bucket = "lastWeek"
	BucketLastMonth Bucket = "lastMonth"
	BucketCatchAll  Bucket = "catchAll"
)

// Bucket horizon durations.
const (
	todayHorizon     = 24 * time.Hour
	yesterdayHorizon = 48 * time.Hour
	lastWeekHorizon  = 7 * 24 * time.Hour
	lastMonthHorizon = 30 * 24 * time.Hour
)

// bucketFor assigns a creation time to exactly one recency bucket based
// on the elapsed duration to now. The buckets partition elapsed time:
//
//	elapsed < 24h          -> today
//	24h <= elapsed < 48h   -> yesterday
//	48h <= elapsed <= 7d   -> lastWeek
//	7d < elapsed <= 30d    -> lastMonth
//	elapsed > 30d          -> catchAll
//
// Events with a future creation time count as today.
func bucketFor(createdAt, now time.Time) Bucket {
	elapsed := now.Sub(createdAt)
	switch {
	case elapsed < todayHorizon:
		return BucketToday
	case elapsed < yesterdayHorizon:
		return BucketYesterday
	case elapsed <= lastWeekHorizon:
		return BucketLastWeek
	case elapsed <= lastMonthHorizon:
		return BucketLastMonth
	default:
		return BucketCatchAll
	}
}

// BucketedEvents holds a group's events split into recency buckets.
// Each bucket is append-only within a build cycle and keeps arrival
// order; chronological order across buckets is only established by the
// stream merger.
type BucketedEvents struct {
	Today     []FormattedEvent `json:"today"`
	Yesterday []FormattedEvent `json:"yesterday"`
	LastWeek  []FormattedEvent `json:"lastWeek"`
	LastMonth []FormattedEvent `json:"lastMonth"`
	CatchAll  []FormattedEvent `json:"catchAll"`
}

// add appends an event to the named bucket.
func (b *BucketedEvents) add(bucket Bucket, event FormattedEvent) {
	switch bucket {
	case BucketToday:
		b.Today = append(b.Today, event)
	case BucketYesterday:
		b.Yesterday = append(b.Yesterday, event)
	case BucketLastWeek:
		b.LastWeek = append(b.LastWeek, event)
	case BucketLastMonth:
		b.LastMonth = append(b.LastMonth, event)
	case BucketCatchAll:
		b.CatchAll = append(b.CatchAll, event)
	}
}

// Len reports the total number of events across all buckets.
func (b *BucketedEvents) Len() int {
	return len(b.Today) + len(b.Yesterday) + len(b.LastWeek) + len(b.LastMonth) + len(b.CatchAll)
}

// Flatten returns all bucketed events as a single slice, most recent
// bucket first, arrival order within each bucket.
func (b *BucketedEvents) Flatten() []FormattedEvent {
	out := make([]FormattedEvent, 0, b.Len())
	out = append(out, b.Today...)
	out = append(out, b.Yesterday...)
	out = append(out, b.LastWeek...)
	out = append(out, b.LastMonth...)
	out = append(out, b.CatchAll...)
	return out
}
