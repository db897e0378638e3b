package redditapi

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

type FetchRequest struct {
	Subreddit string
	// one of new, hot, top; defaults to new
	Sort Sort
	// total number of submissions to collect
	TotalLimit int
	// page size per call, defaults to 100
	BatchSize int
	// consecutive empty pages before falling back to time-window
	// paging, defaults to 3
	MaxEmptyPages int
}

// FetchPosts pages through the listing endpoint until the requested
// total is collected or the listing stops yielding new items. Listing
// endpoints cap out around 1000 items in practice, so once a run of
// empty pages is observed the cursor falls back to time-window search
// paging (sort "new" only, the windows walk created_utc backwards).
//
// Transient source errors are not surfaced: the only forward-progress
// signal is new items, so the cursor logs, backs off a fixed few
// seconds and retries within the run. An empty page is a legitimate
// result, never retried as an error.
func (c *Client) FetchPosts(ctx context.Context, req FetchRequest) ([]Submission, error) {
	ctx, span := tracer.Start(ctx, "FetchPosts")
	defer span.End()
	span.SetAttributes(
		attribute.String("subreddit", req.Subreddit),
		attribute.Int("total_limit", req.TotalLimit),
	)

	if req.TotalLimit <= 0 {
		return nil, nil
	}
	if req.Sort == "" {
		req.Sort = SortNew
	}
	if req.BatchSize <= 0 {
		req.BatchSize = 100
	}
	if req.MaxEmptyPages <= 0 {
		req.MaxEmptyPages = 3
	}

	var collected []Submission
	seen := map[string]bool{}
	after := ""
	emptyPages := 0

	for len(collected) < req.TotalLimit && ctx.Err() == nil {
		limit := min(req.BatchSize, req.TotalLimit-len(collected))

		items, nextAfter, err := c.src.listPage(ctx, req.Subreddit, req.Sort, limit, after)
		if err != nil {
			slog.WarnContext(ctx, "listing fetch failed, backing off",
				"subreddit", req.Subreddit, "err", err)
			sleep(ctx, c.backoff)
			continue
		}

		var page []Submission
		for _, item := range items {
			if seen[item.Id] {
				continue
			}
			seen[item.Id] = true
			page = append(page, item)
		}

		if len(page) == 0 {
			emptyPages++
			if emptyPages >= req.MaxEmptyPages {
				// probably hit the practical listing depth cap
				break
			}
		} else {
			emptyPages = 0
			collected = append(collected, page...)
		}

		after = nextAfter
		sleep(ctx, c.delay)
	}

	if len(collected) < req.TotalLimit && req.Sort == SortNew && ctx.Err() == nil {
		collected = c.fetchViaTimeWindows(ctx, req, collected, seen)
	}

	if len(collected) > req.TotalLimit {
		collected = collected[:req.TotalLimit]
	}
	span.SetAttributes(attribute.Int("collected", len(collected)))
	return collected, nil
}

// fetchViaTimeWindows pages backwards through created_utc: query
// everything in [0, upper), shrink upper to just below the oldest
// item seen, stop on the first window that yields nothing new.
//
// Known coverage risk: this assumes windows come back in (roughly)
// timestamp order; out-of-order results inside a window can slip past
// the shrinking upper bound.
func (c *Client) fetchViaTimeWindows(ctx context.Context, req FetchRequest, collected []Submission, seen map[string]bool) []Submission {
	ctx, span := tracer.Start(ctx, "fetchViaTimeWindows")
	defer span.End()

	upper := time.Now().Unix()

	for len(collected) < req.TotalLimit && ctx.Err() == nil {
		limit := min(req.BatchSize, req.TotalLimit-len(collected))

		items, err := c.src.searchWindow(ctx, req.Subreddit, upper, limit)
		if err != nil {
			slog.WarnContext(ctx, "search window fetch failed, backing off",
				"subreddit", req.Subreddit, "upper", upper, "err", err)
			sleep(ctx, c.backoff)
			continue
		}

		var batch []Submission
		var oldest int64
		for _, item := range items {
			if seen[item.Id] {
				continue
			}
			seen[item.Id] = true
			if oldest == 0 || item.CreatedUtc < oldest {
				oldest = item.CreatedUtc
			}
			batch = append(batch, item)

			if len(collected)+len(batch) >= req.TotalLimit {
				break
			}
		}

		if len(batch) == 0 {
			break
		}
		collected = append(collected, batch...)

		if oldest == 0 {
			break
		}
		upper = oldest - 1

		sleep(ctx, c.delay)
	}

	span.SetAttributes(attribute.Int("collected", len(collected)))
	return collected
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
