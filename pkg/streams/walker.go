package streams

import (
	"context"
	"errors"
	"fmt"
)

// events walks the repository events feed, following the next cursor
// from each response's Link header. The walk is strictly sequential
// since each cursor is only known after the previous response; it stops
// when the feed reports no further pages or after maxPages fetches.
//
// A page that times out ends the walk cleanly: whatever accumulated so
// far is returned with truncated=true. Any other page failure aborts
// the walk with an error.
func (c *Client) events(ctx context.Context, owner, repo string) (events []RawEvent, truncated bool, err error) {
	path := fmt.Sprintf("/repos/%s/%s/events?per_page=%d", owner, repo, c.pageSize)

	for page := 0; page < c.pageLimit; page++ {
		pageCtx, cancel := context.WithTimeout(ctx, c.pageTimeout)
		var pageEvents []RawEvent
		resp, err := c.github.get(pageCtx, path, &pageEvents)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				c.logger.WarnContext(ctx, "events page timed out, truncating walk",
					"owner", owner, "repo", repo, "page", page, "accumulated", len(events))
				return events, true, nil
			}
			return nil, false, fmt.Errorf("fetching events page %d: %w", page, err)
		}

		events = append(events, pageEvents...)
		c.logger.DebugContext(ctx, "fetched events page",
			"owner", owner, "repo", repo, "page", page, "count", len(pageEvents))

		// No last cursor means the current page is the final one.
		if resp.LastURL == "" || resp.NextURL == "" {
			break
		}
		path = resp.NextURL
	}

	return events, false, nil
}
