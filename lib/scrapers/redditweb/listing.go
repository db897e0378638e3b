package redditweb

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"redditharvest/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ListingPost is one row of the HTML listing, kept close to the raw
// markup. Numeric and time fields stay textual here, the normalizer
// owns their interpretation.
type ListingPost struct {
	Fullname     string
	Subreddit    string
	Domain       string
	Title        string
	Author       string
	ScoreText    string
	CommentsText string
	Url          string
	Permalink    string
	CreatedRaw   string
}

type Page struct {
	Posts []ListingPost
	// empty when the listing has no next-page marker
	NextUrl string
}

// ParseListing extracts post rows and the next-page link from one
// listing document. Promoted rows never make it into the result.
func ParseListing(doc *goquery.Document, subreddit string) Page {
	var page Page

	doc.Find("div.thing").Each(func(_ int, post *goquery.Selection) {
		if post.HasClass("promotedlink") || post.AttrOr("data-promoted", "") == "true" || post.AttrOr("data-promoted", "") == "1" {
			return
		}

		titleTag := post.Find("a.title").First()
		if titleTag.Length() == 0 {
			return
		}

		fullname := post.AttrOr("data-fullname", "")
		if fullname == "" {
			fullname = post.AttrOr("data-name", "")
		}

		author := post.AttrOr("data-author", "")
		if author == "" {
			author = "[deleted]"
		}

		commentsTag := post.Find("a.comments").First()

		scoreTag := post.Find("div.score, span.score").First()

		createdRaw := ""
		timeTag := post.Find("time").First()
		if timeTag.Length() > 0 {
			createdRaw = timeTag.AttrOr("datetime", "")
		}

		page.Posts = append(page.Posts, ListingPost{
			Fullname:     fullname,
			Subreddit:    subreddit,
			Domain:       post.AttrOr("data-domain", ""),
			Title:        htmlutil.CleanText(titleTag.Text()),
			Author:       author,
			ScoreText:    htmlutil.CleanText(scoreTag.Text()),
			CommentsText: htmlutil.CleanText(commentsTag.Text()),
			Url:          titleTag.AttrOr("href", ""),
			Permalink:    commentsTag.AttrOr("href", ""),
			CreatedRaw:   createdRaw,
		})
	})

	nextButton := doc.Find("span.next-button a").First()
	page.NextUrl = nextButton.AttrOr("href", "")

	return page
}

func (c *Client) fetchListingPage(ctx context.Context, pageUrl, subreddit string) (Page, error) {
	ctx, span := tracer.Start(ctx, "fetchListingPage")
	defer span.End()
	span.SetAttributes(attribute.String("url", pageUrl))

	res, err := c.Http.R().
		SetContext(ctx).
		Get(pageUrl)

	// polite delay regardless of how the fetch went, the remote
	// throttles by request rate not by outcome
	sleep(ctx, c.delay)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch listing page")
		return Page{}, err
	}
	if res.IsError() {
		err := fmt.Errorf("listing page returned status %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad listing page status")
		return Page{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse listing page")
		return Page{}, err
	}

	page := ParseListing(doc, subreddit)
	span.SetAttributes(attribute.Int("posts", len(page.Posts)))
	return page, nil
}

type PageOptions struct {
	// maximum number of pages to follow, defaults to 20
	MaxPages int
}

// Paginator follows the listing's next-page links. Its only state is
// the URL of the page to fetch next.
type Paginator struct {
	client    *Client
	subreddit string
	url       string
	maxPages  int
	pages     int
	done      bool
}

func (c *Client) Paginate(subreddit string, opts PageOptions) *Paginator {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 20
	}
	return &Paginator{
		client:    c,
		subreddit: subreddit,
		url:       c.listingUrl(subreddit),
		maxPages:  opts.MaxPages,
	}
}

// Next fetches one listing page. The second return is false once the
// listing is exhausted: no next-page marker, the page budget is spent,
// or a page fetch failed.
func (p *Paginator) Next(ctx context.Context) ([]ListingPost, bool, error) {
	if p.done || p.pages >= p.maxPages {
		return nil, false, nil
	}
	p.pages++

	page, err := p.client.fetchListingPage(ctx, p.url, p.subreddit)
	if err != nil {
		p.done = true
		return nil, false, err
	}

	if page.NextUrl == "" {
		p.done = true
	} else {
		p.url = page.NextUrl
	}

	slog.DebugContext(ctx, "listing page fetched",
		"subreddit", p.subreddit,
		"page", p.pages,
		"posts", len(page.Posts),
		"has_next", !p.done,
	)
	return page.Posts, true, nil
}

type FetchOptions struct {
	// total number of posts to collect
	Limit int
	// page budget, see PageOptions
	MaxPages int
}

// FetchPosts drives the paginator until the limit is reached or the
// listing runs out. Rows repeated across pages (the listing shifts
// under us while paging) are dropped by id, falling back to permalink,
// then title+author.
func (c *Client) FetchPosts(ctx context.Context, subreddit string, opts FetchOptions) ([]ListingPost, error) {
	ctx, span := tracer.Start(ctx, "FetchPosts")
	defer span.End()
	span.SetAttributes(
		attribute.String("subreddit", subreddit),
		attribute.Int("limit", opts.Limit),
	)

	if opts.Limit <= 0 {
		return nil, nil
	}

	pager := c.Paginate(subreddit, PageOptions{MaxPages: opts.MaxPages})

	var collected []ListingPost
	seen := map[string]bool{}

	for len(collected) < opts.Limit {
		posts, ok, err := pager.Next(ctx)
		if err != nil {
			return collected, err
		}
		if !ok {
			break
		}
		for _, p := range posts {
			key := p.Fullname
			if key == "" {
				key = p.Permalink
			}
			if key == "" {
				key = p.Title + "\x00" + p.Author
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			collected = append(collected, p)
			if len(collected) >= opts.Limit {
				break
			}
		}
	}

	span.SetAttributes(attribute.Int("collected", len(collected)))
	return collected, nil
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
