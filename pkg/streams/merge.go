package streams

import "sort"

// Merge concatenates flat event streams in argument order and sorts the
// result by creation time, most recent first. The sort is stable, so
// events with equal timestamps keep their arrival order.
func Merge(streams ...[]FormattedEvent) []FormattedEvent {
	total := 0
	for _, s := range streams {
		total += len(s)
	}
	merged := make([]FormattedEvent, 0, total)
	for _, s := range streams {
		merged = append(merged, s...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}
