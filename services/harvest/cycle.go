package harvest

import (
	"context"
	"log/slog"
	"time"

	"redditharvest/lib/scrapers/redditapi"
	"redditharvest/lib/scrapers/redditweb"
	"redditharvest/services/harvest/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/harvest")

type Source string

const (
	SourceWeb  Source = "web"
	SourceApi  Source = "api"
	SourceBoth Source = "both"
)

// WebSource is the HTML listing boundary: paged post rows plus the
// comment detail endpoint.
type WebSource interface {
	FetchPosts(ctx context.Context, subreddit string, opts redditweb.FetchOptions) ([]redditweb.ListingPost, error)
	FetchCommentTree(ctx context.Context, permalink string) ([]redditweb.CommentNode, error)
}

// ApiSource is the structured listing boundary.
type ApiSource interface {
	FetchPosts(ctx context.Context, req redditapi.FetchRequest) ([]redditapi.Submission, error)
}

type Options struct {
	Subreddit string
	// which sources feed the cycle, defaults to SourceWeb
	Source Source
	// total posts per cycle
	Limit    int
	MaxPages int
	// 0 runs exactly one cycle
	PollInterval time.Duration
	// bound on how many of this cycle's posts get their comments fetched
	MaxPostsForComments int

	Sort          redditapi.Sort
	BatchSize     int
	MaxEmptyPages int
}

// Harvester drives ingestion cycles. It remembers which posts already
// had their comments fetched for the lifetime of the process; a
// restart forgets that and refetches.
type Harvester struct {
	store db.Store
	web   WebSource
	api   ApiSource
	opts  Options

	commentsFetched map[string]bool
}

func NewHarvester(store db.Store, web WebSource, api ApiSource, opts Options) *Harvester {
	if opts.Source == "" {
		opts.Source = SourceWeb
	}
	if opts.Limit <= 0 {
		opts.Limit = 200
	}
	if opts.MaxPostsForComments <= 0 {
		opts.MaxPostsForComments = 50
	}
	// a configured source without its client degrades to whatever is
	// wired instead of blowing up mid-cycle
	if web == nil && api != nil && opts.Source != SourceApi {
		slog.Warn("web source not available, using api listing only")
		opts.Source = SourceApi
	}
	if api == nil && web != nil && opts.Source != SourceWeb {
		slog.Warn("api source not available, using web listing only")
		opts.Source = SourceWeb
	}
	return &Harvester{
		store:           store,
		web:             web,
		api:             api,
		opts:            opts,
		commentsFetched: map[string]bool{},
	}
}

type CycleStats struct {
	Scraped       int
	Dropped       int
	Upserted      int
	CommentPosts  int
	Comments      int
	CommentErrors int
}

// RunCycle executes one fetch → normalize → upsert pass, then fetches
// comment trees for a bounded subset of this cycle's posts. A failed
// comment fetch for one post is logged and skipped, it never aborts
// the cycle. Storage constraint violations do abort: they mean an
// invariant breach, not a transient condition.
func (h *Harvester) RunCycle(ctx context.Context) (CycleStats, error) {
	ctx, span := tracer.Start(ctx, "RunCycle")
	defer span.End()

	var stats CycleStats
	run := newLedger()
	var rows []db.Post

	if h.web != nil && (h.opts.Source == SourceWeb || h.opts.Source == SourceBoth) {
		posts, err := h.web.FetchPosts(ctx, h.opts.Subreddit, redditweb.FetchOptions{
			Limit:    h.opts.Limit,
			MaxPages: h.opts.MaxPages,
		})
		if err != nil {
			// keep whatever pages made it before the failure
			slog.WarnContext(ctx, "web listing fetch ended early",
				"subreddit", h.opts.Subreddit, "posts", len(posts), "err", err)
		}
		stats.Scraped += len(posts)
		for _, p := range posts {
			row, ok := PostFromListing(p)
			if !ok {
				stats.Dropped++
				continue
			}
			if !run.admit(postKey(row.PostId, row.Permalink, row.Title, row.Author)) {
				continue
			}
			rows = append(rows, row)
		}
	}

	if h.api != nil && (h.opts.Source == SourceApi || h.opts.Source == SourceBoth) {
		subs, err := h.api.FetchPosts(ctx, redditapi.FetchRequest{
			Subreddit:     h.opts.Subreddit,
			Sort:          h.opts.Sort,
			TotalLimit:    h.opts.Limit,
			BatchSize:     h.opts.BatchSize,
			MaxEmptyPages: h.opts.MaxEmptyPages,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "api listing fetch failed")
			return stats, err
		}
		stats.Scraped += len(subs)
		for _, sub := range subs {
			row, ok := PostFromSubmission(sub)
			if !ok {
				stats.Dropped++
				continue
			}
			if !run.admit(postKey(row.PostId, row.Permalink, row.Title, row.Author)) {
				continue
			}
			rows = append(rows, row)
		}
	}

	slog.InfoContext(ctx, "scraped posts",
		"scraped", stats.Scraped, "prepared", len(rows), "dropped", stats.Dropped)

	err := h.store.UpsertPosts(ctx, rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "post upsert failed")
		return stats, err
	}
	stats.Upserted = len(rows)

	h.fetchComments(ctx, rows, &stats)

	span.SetAttributes(
		attribute.Int("upserted", stats.Upserted),
		attribute.Int("comments", stats.Comments),
	)
	slog.InfoContext(ctx, "cycle done",
		"posts", stats.Upserted,
		"comment_posts", stats.CommentPosts,
		"comments", stats.Comments,
		"comment_errors", stats.CommentErrors,
	)
	return stats, nil
}

// fetchComments picks at most MaxPostsForComments posts from this
// cycle that were not already handled during this process's lifetime.
func (h *Harvester) fetchComments(ctx context.Context, rows []db.Post, stats *CycleStats) {
	if h.web == nil {
		return
	}

	picked := 0
	for _, row := range rows {
		if picked >= h.opts.MaxPostsForComments {
			break
		}
		if row.Permalink == nil || h.commentsFetched[row.PostId] {
			continue
		}
		picked++

		nodes, err := h.web.FetchCommentTree(ctx, *row.Permalink)
		if err != nil {
			stats.CommentErrors++
			slog.WarnContext(ctx, "comment fetch failed",
				"post_id", row.PostId, "err", err)
			continue
		}
		comments := FlattenComments(row.PostId, nodes)
		if len(comments) > 0 {
			err = h.store.UpsertComments(ctx, comments)
			if err != nil {
				stats.CommentErrors++
				slog.WarnContext(ctx, "comment upsert failed",
					"post_id", row.PostId, "err", err)
				continue
			}
		}
		h.commentsFetched[row.PostId] = true
		stats.CommentPosts++
		stats.Comments += len(comments)
		slog.DebugContext(ctx, "saved comments",
			"post_id", row.PostId, "count", len(comments))
	}
}

// Run loops RunCycle on the poll interval, or runs once when no
// interval is configured. Cycle errors do not stop the poll loop.
func (h *Harvester) Run(ctx context.Context) error {
	if h.opts.PollInterval <= 0 {
		_, err := h.RunCycle(ctx)
		return err
	}

	for {
		_, err := h.RunCycle(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "cycle failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(h.opts.PollInterval):
		}
	}
}
