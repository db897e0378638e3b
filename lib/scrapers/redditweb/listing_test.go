package redditweb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const listingFixture = `
<html><body><div id="siteTable">
  <div class="thing promotedlink" data-fullname="t3_ad" data-promoted="true">
    <a class="title" href="https://ads.example.com/">Sponsored</a>
  </div>
  <div class="thing" data-fullname="t3_a" data-author="alice" data-domain="example.com">
    <a class="title" href="https://example.com/a">First   post</a>
    <div class="score unvoted">1.5k</div>
    <time datetime="2024-01-02T03:04:05+00:00">a day ago</time>
    <a class="comments" href="https://old.reddit.com/r/tech/comments/a/first_post/">12 comments</a>
  </div>
  <div class="thing" data-name="t3_b">
    <a class="title" href="/r/tech/comments/b/self_post/">Self post</a>
    <div class="score">&#8226;</div>
    <a class="comments" href="https://old.reddit.com/r/tech/comments/b/self_post/">comment</a>
  </div>
  <div class="thing" data-fullname="t3_broken">
    <p>row without a title anchor</p>
  </div>
  %s
</div></body></html>`

func TestParseListing(t *testing.T) {
	next := `<span class="next-button"><a href="https://old.reddit.com/r/tech/?count=25&amp;after=t3_b">next</a></span>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fmt.Sprintf(listingFixture, next)))
	require.NoError(t, err)

	page := ParseListing(doc, "tech")

	require.Len(t, page.Posts, 2)

	first := page.Posts[0]
	require.Equal(t, "t3_a", first.Fullname)
	require.Equal(t, "tech", first.Subreddit)
	require.Equal(t, "example.com", first.Domain)
	require.Equal(t, "First post", first.Title)
	require.Equal(t, "alice", first.Author)
	require.Equal(t, "1.5k", first.ScoreText)
	require.Equal(t, "12 comments", first.CommentsText)
	require.Equal(t, "https://example.com/a", first.Url)
	require.Equal(t, "https://old.reddit.com/r/tech/comments/a/first_post/", first.Permalink)
	require.Equal(t, "2024-01-02T03:04:05+00:00", first.CreatedRaw)

	// data-name fallback and the deleted-author sentinel
	second := page.Posts[1]
	require.Equal(t, "t3_b", second.Fullname)
	require.Equal(t, "[deleted]", second.Author)
	require.Equal(t, "•", second.ScoreText)
	require.Equal(t, "comment", second.CommentsText)

	require.Equal(t, "https://old.reddit.com/r/tech/?count=25&after=t3_b", page.NextUrl)
}

func TestParseListingNoNextMarker(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fmt.Sprintf(listingFixture, "")))
	require.NoError(t, err)

	page := ParseListing(doc, "tech")
	require.Len(t, page.Posts, 2)
	require.Empty(t, page.NextUrl)
}

func pageHtml(rows, next string) string {
	return fmt.Sprintf(`<html><body><div id="siteTable">%s%s</div></body></html>`, rows, next)
}

func listingRowHtml(fullname, title, permalink string) string {
	return fmt.Sprintf(`
	<div class="thing" data-fullname="%s" data-author="alice">
	  <a class="title" href="https://example.com/x">%s</a>
	  <div class="score">5</div>
	  <a class="comments" href="%s">3 comments</a>
	</div>`, fullname, title, permalink)
}

func newTestClient(t *testing.T, baseUrl string) *Client {
	client, err := NewClient(ClientOptions{
		BaseUrl:       baseUrl,
		RequestDelay:  time.Millisecond,
		CommentsDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return client
}

func TestFetchPostsFollowsNextLinks(t *testing.T) {
	requests := 0
	var serverUrl string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("count") == "" {
			next := fmt.Sprintf(`<span class="next-button"><a href="%s/r/tech/?count=25&amp;after=t3_a">next</a></span>`, serverUrl)
			fmt.Fprint(w, pageHtml(
				listingRowHtml("t3_a", "first", "/r/tech/comments/a/"),
				next,
			))
			return
		}
		// the second page repeats a row the listing shifted forward
		fmt.Fprint(w, pageHtml(
			listingRowHtml("t3_a", "first", "/r/tech/comments/a/")+
				listingRowHtml("t3_b", "second", "/r/tech/comments/b/"),
			"",
		))
	}))
	defer server.Close()
	serverUrl = server.URL

	client := newTestClient(t, server.URL)
	posts, err := client.FetchPosts(context.Background(), "tech", FetchOptions{Limit: 10})
	require.NoError(t, err)

	require.Equal(t, 2, requests)
	require.Len(t, posts, 2)
	require.Equal(t, "t3_a", posts[0].Fullname)
	require.Equal(t, "t3_b", posts[1].Fullname)
}

func TestFetchPostsStopsWithoutNextMarker(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, pageHtml(listingRowHtml("t3_a", "only", "/r/tech/comments/a/"), ""))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	posts, err := client.FetchPosts(context.Background(), "tech", FetchOptions{Limit: 100})
	require.NoError(t, err)

	require.Equal(t, 1, requests)
	require.Len(t, posts, 1)
}

func TestFetchPostsHonorsPageBudget(t *testing.T) {
	requests := 0
	var serverUrl string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fullname := fmt.Sprintf("t3_p%d", requests)
		next := fmt.Sprintf(`<span class="next-button"><a href="%s/r/tech/?count=%d">next</a></span>`, serverUrl, requests)
		fmt.Fprint(w, pageHtml(listingRowHtml(fullname, "post", "/r/tech/comments/"+fullname+"/"), next))
	}))
	defer server.Close()
	serverUrl = server.URL

	client := newTestClient(t, server.URL)
	posts, err := client.FetchPosts(context.Background(), "tech", FetchOptions{Limit: 100, MaxPages: 3})
	require.NoError(t, err)

	require.Equal(t, 3, requests)
	require.Len(t, posts, 3)
}

func TestFetchPostsReturnsPartialOnError(t *testing.T) {
	requests := 0
	var serverUrl string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests > 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		next := fmt.Sprintf(`<span class="next-button"><a href="%s/r/tech/?count=25">next</a></span>`, serverUrl)
		fmt.Fprint(w, pageHtml(listingRowHtml("t3_a", "first", "/r/tech/comments/a/"), next))
	}))
	defer server.Close()
	serverUrl = server.URL

	client := newTestClient(t, server.URL)
	posts, err := client.FetchPosts(context.Background(), "tech", FetchOptions{Limit: 100})
	require.Error(t, err)
	require.Len(t, posts, 1)
}
